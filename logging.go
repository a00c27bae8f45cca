package identity

// LoggerProviderFunc adapts a function to the LoggerProvider interface.
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger returns a provider/logger pair for a named component. The
// provider wins when it yields a non-nil logger for the name, then the
// fallback logger, then defLogger.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if logger := provider.GetLogger(name); logger != nil {
			return provider, logger
		}
	}

	if fallback == nil {
		fallback = defLogger{}
	}

	if provider == nil {
		return providerFromLogger(fallback), fallback
	}

	// Provider exists but had nothing for this name: keep consulting it for
	// other names while guaranteeing a usable logger for this one.
	chained := provider
	return LoggerProviderFunc(func(n string) Logger {
		if logger := chained.GetLogger(n); logger != nil {
			return logger
		}
		return fallback
	}), fallback
}

func providerFromLogger(logger Logger) LoggerProvider {
	return LoggerProviderFunc(func(string) Logger {
		return logger
	})
}
