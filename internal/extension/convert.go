package extension

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/events"
)

const fieldCancelled = "cancelled"

// eventTable converts an event into the table passed to Lua handlers.
func eventTable(L *lua.LState, ev event.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(ev.Type()))

	switch e := ev.(type) {
	case *events.EmpireCollapse:
		t.RawSetString("empire", empireTable(L, e.Empire()))
		t.RawSetString("cause", lua.LString(e.Cause.String()))
	case *events.TechnologyLevelSet:
		t.RawSetString("empire", empireTable(L, e.Empire()))
		t.RawSetString("old", lua.LNumber(e.Old))
		t.RawSetString("new", lua.LNumber(e.New))
	case events.LogicalTick:
		t.RawSetString("phase", lua.LString(e.Phase.String()))
	case events.GraphicalTick:
		t.RawSetString("phase", lua.LString(e.Phase.String()))
	case *events.GalaxySaving:
		t.RawSetString("cause", lua.LString(e.Cause))
		t.RawSetString("location", lua.LString(e.Location))
		t.RawSetString("natural", lua.LBool(e.Natural))
	case *events.GalaxySavingEnd:
		t.RawSetString("location", lua.LString(e.Location))
		t.RawSetString("natural", lua.LBool(e.Natural))
		if e.Err != nil {
			t.RawSetString("error", lua.LString(e.Err.Error()))
		}
	case *events.KeyTyped:
		t.RawSetString("key", lua.LString(string(e.Key)))
	}

	if mp, ok := ev.(event.MetadataProvider); ok {
		t.RawSetString("id", lua.LString(mp.EventMetadata().ID))
	}
	if c, ok := ev.(event.Cancellable); ok {
		t.RawSetString(fieldCancelled, lua.LBool(c.Cancelled()))
	}
	return t
}

func empireTable(L *lua.LState, e events.Empire) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("uid", lua.LNumber(e.UID()))
	t.RawSetString("name", lua.LString(e.Name()))
	t.RawSetString("stars", lua.LNumber(e.StarCount()))
	t.RawSetString("tech", lua.LNumber(e.TechnologyLevel()))
	return t
}

// applyCancelled copies the cancelled field of t back into ev.
func applyCancelled(t *lua.LTable, ev event.Event) {
	c, ok := ev.(event.Cancellable)
	if !ok {
		return
	}
	c.SetCancelled(lua.LVAsBool(t.RawGetString(fieldCancelled)))
}
