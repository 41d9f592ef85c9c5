package commandstructure

// mockCommand records how often it ran and delegates to executeFunc.
type mockCommand struct {
	name        string
	calls       int
	executeFunc func([]byte) ([]byte, error)
}

func (m *mockCommand) Name() string {
	return m.name
}

func (m *mockCommand) Execute(imageData []byte) ([]byte, error) {
	m.calls++
	if m.executeFunc != nil {
		return m.executeFunc(imageData)
	}
	return imageData, nil
}

func newMockCommand(name string) *mockCommand {
	return &mockCommand{name: name}
}

// suffixCommand appends "-<name>" so tests can observe execution order.
func suffixCommand(name string) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(data []byte) ([]byte, error) {
			return append(append([]byte{}, data...), "-"+name...), nil
		},
	}
}

func newMockCommandWithError(name string, err error) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func([]byte) ([]byte, error) {
			return nil, err
		},
	}
}
