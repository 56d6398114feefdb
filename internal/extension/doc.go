// Package extension loads Lua scripts as event listeners.
//
// Each script runs once at load time in a sandboxed gopher-lua state and
// declares its bindings through the starhook module:
//
//	starhook.on("empire.collapse", "lowest", function(ev)
//	    if ev.empire.stars == 0 then
//	        ev.cancelled = true
//	    end
//	end)
//
//	starhook.on("lifecycle.saving", "normal", function(ev)
//	    if ev.location == "" then
//	        error("refusing to save without a location")
//	    end
//	end)
//
// A handler receives the event as a table. For cancellable events the
// cancelled field is read back after the call. A Lua error becomes the
// handler's error, so it aborts strict publications such as the save
// pipeline.
//
// Scripts get the base, table, string and math libraries only; file,
// OS and module loading functions are removed.
package extension
