package scenario

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Data is what email templates can reference.
type Data struct {
	Company        string
	Trainee        string
	Founder        string
	AccountManager string
	Mentor         string
	Champion       string
	Review         int
	Slot           string
	Slots          []string
	Pros           []string
	Cons           []string
}

// Base fills the fields every template shares.
func (sc *Scenario) Base() Data {
	return Data{
		Company:        sc.Company.Name,
		Trainee:        sc.Trainee,
		Founder:        sc.Founder.Name,
		AccountManager: sc.AccountManager.Name,
	}
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Render fills the outgoing template for kind.
func (sc *Scenario) Render(kind string, data Data) (subject, body string, err error) {
	tmpl, ok := sc.Templates[kind]
	if !ok {
		return "", "", fmt.Errorf("scenario: no template for %q", kind)
	}
	return render(kind, tmpl, data)
}

// RenderReply fills the simulated reply template for kind.
func (sc *Scenario) RenderReply(kind string, data Data) (subject, body string, err error) {
	tmpl, ok := sc.Replies[kind]
	if !ok {
		return "", "", fmt.Errorf("scenario: no reply for %q", kind)
	}
	return render("reply "+kind, tmpl, data)
}

func render(name string, tmpl Template, data Data) (string, string, error) {
	subject, err := execute(name+" subject", tmpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := execute(name+" body", tmpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject), strings.TrimSpace(body), nil
}

func execute(name, text string, data Data) (string, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("scenario: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("scenario: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func checkTemplate(name string, tmpl Template) error {
	if strings.TrimSpace(tmpl.Subject) == "" {
		return fmt.Errorf("%s: subject is required", name)
	}
	for part, text := range map[string]string{"subject": tmpl.Subject, "body": tmpl.Body} {
		if _, err := template.New(name).Funcs(funcs).Parse(text); err != nil {
			return fmt.Errorf("%s %s: %w", name, part, err)
		}
	}
	return nil
}
