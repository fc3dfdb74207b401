// Package smtp provides the SMTP transport used by the notification worker.
package smtp

import "io"

// Client is the subset of the SMTP client used to send one message.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface opens authenticated SMTP sessions.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
