// Package ports defines the capabilities the host supplies to the controllers.
package ports

import "context"

// Severity of a notification
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// LoginPath is the sign-in route.
const LoginPath = "/login"

// Notification is a user-facing message.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier shows notifications. Notify must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator changes the host's current route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// DownloadLink is what the host needs to save a video locally.
type DownloadLink struct {
	URL      string
	Filename string
}

// Downloader hands a link to the host for saving.
type Downloader interface {
	Download(ctx context.Context, link DownloadLink) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(context.Context, DownloadLink) error

func (f DownloaderFunc) Download(ctx context.Context, link DownloadLink) error { return f(ctx, link) }

// Discard is a Notifier and Navigator that drops everything.
var Discard discard

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Navigate(string)     {}
