package systems

import "errors"

// ErrAlreadyArrived is returned by Recall when the movement's arrival
// time has already passed; spec §4.8 forbids recalling a fleet that has
// already landed.
var ErrAlreadyArrived = errors.New("fleet movement: already arrived")
