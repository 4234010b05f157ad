/*
Package wizard implements the simulator modal as a pure state machine.

Every handler is a function of (current state, input) returning the next state
and a list of side effects for the host to perform (render a step, show errors,
move focus, invoke the submission pipeline, track an event). Nothing in this
package touches I/O, so any surface can drive it: the HTTP session API, the
terminal simulator, or a test.

# States

	Closed -> Step 1 -> Step 2 -> Step 3 -> Success
	   ^________________ close / Escape / overlay click

Advancing past a step requires every required field of that step to be valid.
*/
package wizard
