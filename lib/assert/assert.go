package assert

// NotNil panics when a required dependency was not provided to a constructor.
func NotNil(value any, name string) {
	if value == nil {
		panic("expected " + name + " to be not nil")
	}
}

func NotEmptyStr(str string, name string) {
	if str == "" {
		panic("expected " + name + " to be non-empty")
	}
}
