package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	in     io.Reader
	out    io.Writer
}

func newApplication(opts []Option) *application {
	app := &application{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithIO sets where one-shot commands read input and write results.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.in = in
		a.out = out
	}
}
