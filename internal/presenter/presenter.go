// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/vorlif/spreak"

	"github.com/wneessen/district-locator/internal/config"
	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/orchestrator"
	"github.com/wneessen/district-locator/internal/resolve"
	"github.com/wneessen/district-locator/internal/vartype"
)

var ErrNilLocalizer = errors.New("localizer must not be nil")

// ResultContext is the data the result template is rendered with.
type ResultContext struct {
	ID        int
	Name      string
	Region    string
	Code      string
	Latitude  float64
	Longitude float64
	Method    string
	Confirmed bool
}

type Presenter struct {
	localizer *spreak.Localizer
	result    *template.Template
}

// New parses the configured result template and returns a Presenter. The template is
// rendered once with an empty context, so execution errors surface at startup.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	if loc == nil {
		return nil, ErrNilLocalizer
	}
	pres := &Presenter{localizer: loc}

	tpl, err := template.New("result").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse result template: %w", err)
	}
	pres.result = tpl

	if _, err = pres.render(ResultContext{}); err != nil {
		return nil, fmt.Errorf("failed to render result template: %w", err)
	}
	return pres, nil
}

// BuildContext combines a district and the outcome it was resolved with.
func (p *Presenter) BuildContext(dist district.District, outcome orchestrator.Outcome) ResultContext {
	method := string(outcome.Method)
	if outcome.Method == orchestrator.MethodNone {
		method = "manual"
	}
	return ResultContext{
		ID:        dist.ID,
		Name:      dist.Name,
		Region:    dist.Region,
		Code:      dist.Code,
		Latitude:  dist.Ref.Lat,
		Longitude: dist.Ref.Lon,
		Method:    method,
		Confirmed: outcome.Confirmed,
	}
}

// ResultLine renders the result template for a resolved district.
func (p *Presenter) ResultLine(dist district.District, outcome orchestrator.Outcome) (string, error) {
	return p.render(p.BuildContext(dist, outcome))
}

// ResultText is the localized sentence announcing the rendered result line.
func (p *Presenter) ResultText(line string) string {
	return p.localizer.Getf("Your district: %s", line)
}

// SpokenText is the sentence read out by the audio player. It is always Hindi.
func (p *Presenter) SpokenText(dist district.District) string {
	return fmt.Sprintf(spokenTemplate, dist.Name)
}

// SpokenPermissionText is the Hindi explanation read out with the permission dialog.
func (p *Presenter) SpokenPermissionText() string {
	return spokenPermission
}

// SpokenCandidatesText reads out the nearest candidate and its distance in Hindi.
func (p *Presenter) SpokenCandidatesText(top resolve.Candidate) string {
	return fmt.Sprintf(spokenConfirmTemplate, top.District.Name, FormatDistance(top.DistanceMeters))
}

func (p *Presenter) PermissionText() string {
	return p.localizer.Get("Allow this device to detect your district from its location?")
}

func (p *Presenter) PermissionPrompt() string {
	return p.localizer.Get("Allow location access? [y/n, q to cancel]: ")
}

// CandidateList renders the numbered confirmation dialog. An absent accuracy marks the
// candidates as derived from the IP address. The "none of these" option is always 0.
func (p *Presenter) CandidateList(candidates []resolve.Candidate, accuracy vartype.VarFloat64) string {
	buf := strings.Builder{}
	buf.WriteString(p.localizer.Get("Is this your district?"))
	buf.WriteString("\n")
	if acc, ok := accuracy.Get(); ok {
		buf.WriteString(p.localizer.Getf("Location accuracy: %s", FormatAccuracy(acc)))
	} else {
		buf.WriteString(p.localizer.Get("Approximate location from your internet connection"))
	}
	buf.WriteString("\n")

	names := make([]string, len(candidates))
	regions := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.District.Name
		regions[i] = c.District.Region
	}
	nameWidth, regionWidth := maxWidth(names...), maxWidth(regions...)
	for i, c := range candidates {
		buf.WriteString(fmt.Sprintf("%3d) %s  %s  %s\n", i+1, pad(c.District.Name, nameWidth),
			pad(c.District.Region, regionWidth), FormatDistance(c.DistanceMeters)))
	}
	buf.WriteString(fmt.Sprintf("%3d) %s\n", 0, p.localizer.Get("None of these")))
	return buf.String()
}

func (p *Presenter) ConfirmPrompt(count int) string {
	return p.localizer.Getf("Select your district [1-%d, 0 for none of these, q to cancel]: ", count)
}

// RegionList renders districts grouped by region and numbered in display order. The returned
// slice maps a selection number n to the district at index n-1.
func (p *Presenter) RegionList(groups []district.RegionGroup) (string, []district.District) {
	var names []string
	for _, group := range groups {
		for _, dist := range group.Districts {
			names = append(names, dist.Name)
		}
	}
	width := maxWidth(names...)

	buf := strings.Builder{}
	order := make([]district.District, 0, len(names))
	for _, group := range groups {
		buf.WriteString(group.Region)
		buf.WriteString("\n")
		for _, dist := range group.Districts {
			order = append(order, dist)
			buf.WriteString(fmt.Sprintf("%5d) %s  %s\n", len(order), pad(dist.Name, width), dist.Code))
		}
	}
	return buf.String(), order
}

func (p *Presenter) SearchPrompt() string {
	return p.localizer.Get("Search for your district (name or state, empty for all): ")
}

func (p *Presenter) NoMatchText(query string) string {
	return p.localizer.Getf("No district matches %q.", query)
}

func (p *Presenter) SelectPrompt(count int) string {
	return p.localizer.Getf("Select your district [1-%d, q to cancel]: ", count)
}

func (p *Presenter) InvalidSelectionText() string {
	return p.localizer.Get("Invalid selection, please try again.")
}

// NoticeText returns the localized message for an orchestrator notice.
func (p *Presenter) NoticeText(notice orchestrator.Notice) string {
	if msg, ok := NoticeMessages[notice]; ok {
		return p.localizer.Get(msg)
	}
	return notice.String()
}

// MethodLabel returns the localized label of a resolution method.
func (p *Presenter) MethodLabel(method orchestrator.Method) string {
	if label, ok := MethodLabels[method]; ok {
		return p.localizer.Get(label)
	}
	return string(method)
}

// MethodText names how the district was found. A manual outcome is always labeled as a manual
// selection, whatever position it started from.
func (p *Presenter) MethodText(outcome orchestrator.Outcome) string {
	method := outcome.Method
	if outcome.Manual {
		method = orchestrator.MethodNone
	}
	return p.localizer.Getf("Detected via %s", p.MethodLabel(method))
}

func (p *Presenter) render(ctx ResultContext) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := p.result.Execute(buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
