// Package hook connects patched host methods to the event bus.
//
// Every splice in the instrumentation manifest calls a static method on
// the hook class. A Bridge implements those methods in Go: each one builds
// an event, publishes it and turns the outcome into the value the spliced
// code expects (usually "was the event cancelled").
//
// A Registry maps the symbolic reference a splice emits, such as
//
//	starhook/bridge/Hooks.emitCollapse(Lstarhook/api/ActiveEmpire;)Z
//
// to a Func, so a host-side runtime can dispatch a hook call by the same
// reference the engine wrote into the class. The registry also serves as
// the instrument.HookResolver that proves every planned hook exists before
// a class is patched.
package hook
