// Package portstest provides recording port implementations for tests.
package portstest

import (
	"context"
	"sync"

	"github.com/jhorman9/elevideo/internal/ports"
)

// Recorder captures every notification, navigation and download it receives.
type Recorder struct {
	mu            sync.Mutex
	notifications []ports.Notification
	navigations   []string
	downloads     []ports.DownloadLink

	// DownloadErr is returned by Download when set.
	DownloadErr error
}

var (
	_ ports.Notifier   = (*Recorder)(nil)
	_ ports.Navigator  = (*Recorder)(nil)
	_ ports.Downloader = (*Recorder)(nil)
)

func (r *Recorder) Notify(n ports.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	r.navigations = append(r.navigations, path)
	r.mu.Unlock()
}

func (r *Recorder) Download(_ context.Context, link ports.DownloadLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DownloadErr != nil {
		return r.DownloadErr
	}
	r.downloads = append(r.downloads, link)
	return nil
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.notifications...)
}

// Titles returns the recorded notification titles in order.
func (r *Recorder) Titles() []string {
	var out []string
	for _, n := range r.Notifications() {
		out = append(out, n.Title)
	}
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (ports.Notification, bool) {
	ns := r.Notifications()
	if len(ns) == 0 {
		return ports.Notification{}, false
	}
	return ns[len(ns)-1], true
}

// Navigations returns a copy of the recorded paths.
func (r *Recorder) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigations...)
}

// Downloads returns a copy of the recorded links.
func (r *Recorder) Downloads() []ports.DownloadLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.DownloadLink(nil), r.downloads...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notifications, r.navigations, r.downloads = nil, nil, nil
	r.mu.Unlock()
}
