package process

// Fake is a Controller for tests. It records calls and flips Running on
// Terminate/Launch unless an error is configured.
type Fake struct {
	Running bool

	TerminateErr error
	LaunchErr    error

	TerminateCalls []string
	LaunchCalls    []string
}

func (f *Fake) IsRunning(app string) bool {
	return f.Running
}

func (f *Fake) Terminate(app string) error {
	f.TerminateCalls = append(f.TerminateCalls, app)
	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	f.Running = false
	return nil
}

func (f *Fake) Launch(app string) error {
	f.LaunchCalls = append(f.LaunchCalls, app)
	if f.LaunchErr != nil {
		return f.LaunchErr
	}
	f.Running = true
	return nil
}
