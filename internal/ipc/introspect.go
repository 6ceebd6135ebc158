package ipc

import (
	"github.com/godbus/dbus/v5/introspect"
)

func outArg(name, signature string) introspect.Arg {
	return introspect.Arg{Name: name, Type: signature, Direction: "out"}
}

// IntrospectNode describes the object served at the service path
func IntrospectNode(iface string) *introspect.Node {
	return &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: iface,
				Methods: []introspect.Method{
					{
						Name: MethodDump,
						Args: []introspect.Arg{outArg("info", "s")},
					},
					{
						Name: MethodGetData,
						Args: []introspect.Arg{
							{Name: "zone", Type: "u", Direction: "in"},
							outArg("time", "t"),
							outArg("name", "s"),
							outArg("id", "u"),
							outArg("active", "u"),
							outArg("power", "d"),
							outArg("temperature", "d"),
							outArg("humidity", "d"),
						},
					},
				},
			},
		},
	}
}
