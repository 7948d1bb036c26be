// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"loc":         p.loc,
		"distance":    FormatDistance,
		"accuracy":    FormatAccuracy,
		"floatFormat": floatFormat,
		"pad":         pad,
		"lc":          strings.ToLower,
		"uc":          strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	if raw, ok := i18nVars[strings.ToLower(val)]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

// FormatDistance formats a distance in meters. Distances below one kilometer are shown in
// whole meters, everything else in kilometers with one decimal.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// FormatAccuracy formats an accuracy radius in meters.
func FormatAccuracy(meters float64) string {
	return "±" + FormatDistance(meters)
}

func floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}

// pad fills val with spaces up to the given display width. Devanagari and other wide
// scripts are measured by their cell width, not their byte or rune count.
func pad(val string, width int) string {
	return runewidth.FillRight(val, width)
}

func maxWidth(vals ...string) int {
	width := 0
	for _, val := range vals {
		if w := runewidth.StringWidth(val); w > width {
			width = w
		}
	}
	return width
}
