// Package scripts embeds the built-in directive scripts. Each one selects
// entities from the frontend entity list through entities() and can be run
// by name with the gen command's --preset flag.
package scripts

import "embed"

//go:embed *.risor
var FS embed.FS
