package assert

// NilErr checks that the error `val` is nil and stops the test fatally
// when it is not.
func NilErr(t TestingFatalf, val error, msgAndArgs ...any) {
	t.Helper()

	if val == nil {
		return
	}

	t.Fatalf("expected nil error but got `%#v`%s", val,
		fromMsgAndArgs(msgAndArgs...))
}

// NotNilErr checks that the error `val` is not nil, i.e. that an expected
// failure did actually happen. Stops the test fatally otherwise.
func NotNilErr(t TestingFatalf, val error, msgAndArgs ...any) {
	t.Helper()

	if val != nil {
		return
	}

	t.Fatalf("unexpected nil error%s", fromMsgAndArgs(msgAndArgs...))
}
