package web

import "embed"

// TemplatesFS holds the dashboard page and the overview fragment.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small htmx helper script.
//
//go:embed static/*
var StaticFS embed.FS
