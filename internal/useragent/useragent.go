// Package useragent turns a User-Agent header into a short descriptor.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Descriptor is the parsed form of a User-Agent header.
type Descriptor struct {
	Source         string
	Browser        string
	BrowserVersion string
	OS             string
	Mobile         bool
	Bot            bool
}

// Parse parses a raw User-Agent header. An empty header yields a zero Descriptor.
func Parse(header string) Descriptor {
	header = strings.TrimSpace(header)
	if header == "" {
		return Descriptor{}
	}
	ua := useragent.New(header)
	name, version := ua.Browser()
	return Descriptor{
		Source:         header,
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// String renders a one-line summary such as "Chrome 120.0.0.0 on Windows 10 (desktop)".
func (d Descriptor) String() string {
	if d.Source == "" {
		return "unknown"
	}
	var b strings.Builder
	if d.Browser != "" {
		b.WriteString(d.Browser)
		if d.BrowserVersion != "" {
			b.WriteString(" ")
			b.WriteString(d.BrowserVersion)
		}
	} else {
		b.WriteString(d.Source)
	}
	if d.OS != "" {
		b.WriteString(" on ")
		b.WriteString(d.OS)
	}
	switch {
	case d.Bot:
		b.WriteString(" (bot)")
	case d.Mobile:
		b.WriteString(" (mobile)")
	default:
		b.WriteString(" (desktop)")
	}
	return b.String()
}
