package dispatcher

// getModuleName :
// Returns the module tag used when this package logs through the
// shared `logger.Logger` interface, so router-level messages are
// identifiable alongside the simulation and persistence bridge logs.
func getModuleName() string {
	return "dispatcher"
}
