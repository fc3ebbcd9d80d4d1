// formstate-cli loads a form configuration, fills the currently visible
// fields through interactive prompts, validates the result, and prints the
// structured submission document.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/formconfig"
)

func main() {
	configPath := flag.String("config", "form.json", "form configuration path (JSON or YAML)")
	snapshotPath := flag.String("snapshot", "", "optional draft snapshot to hydrate before prompting")
	output := flag.String("output", "", "output file (stdout if empty)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	eng, err := formstate.Load(*configPath, formstate.WithLogger(logging.New(level)))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *snapshotPath != "" {
		if err := hydrate(eng, *snapshotPath); err != nil {
			log.Fatalf("Failed to hydrate snapshot: %v", err)
		}
	}

	if err := fill(eng); err != nil {
		log.Fatalf("Prompting failed: %v", err)
	}

	report, err := eng.Validate()
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}
	if !report.Valid {
		for key, errs := range report.Fields {
			for _, fieldErr := range errs {
				fmt.Fprintf(os.Stderr, "%s.%s: %s\n", key.SectionID, key.FieldName, fieldErr.Message)
			}
		}
		os.Exit(1)
	}

	doc, warnings, err := eng.BuildOutput()
	if err != nil {
		log.Fatalf("Failed to build output: %v", err)
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, payload, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Output written to %s\n", *output)
	} else {
		fmt.Println(string(payload))
	}
}

func hydrate(eng *formstate.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snapshot formstate.FlatFormData
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	return eng.LoadSnapshot(snapshot)
}

// fill prompts section by section, recomputing visibility after each one so
// answers can reveal or hide downstream sections.
func fill(eng *formstate.Engine) error {
	prompted := make(map[string]bool)
	for {
		visible, err := eng.VisibleSections()
		if err != nil {
			return err
		}
		next := firstUnprompted(visible, prompted)
		if next == nil {
			return nil
		}
		prompted[next.ID] = true
		if err := promptSection(eng, next); err != nil {
			return err
		}
	}
}

func firstUnprompted(sections []*formconfig.Section, prompted map[string]bool) *formconfig.Section {
	for _, sec := range sections {
		if !prompted[sec.ID] {
			return sec
		}
	}
	return nil
}

func promptSection(eng *formstate.Engine, sec *formconfig.Section) error {
	if sec.Title != "" && len(sec.Fields) > 0 {
		fmt.Printf("-- %s --\n", sec.Title)
	}
	for i := range sec.Fields {
		if err := promptField(eng, sec, &sec.Fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func promptField(eng *formstate.Engine, sec *formconfig.Section, field *formconfig.Field) error {
	label := field.Label
	if label == "" {
		label = field.Name
	}

	switch field.Type {
	case formconfig.FieldTypeBoolean:
		var answer bool
		if def, ok := field.Default.(bool); ok {
			answer = def
		}
		if err := survey.AskOne(&survey.Confirm{Message: label, Default: answer, Help: field.Description}, &answer); err != nil {
			return err
		}
		return eng.WriteField(sec.ID, field.Name, answer)
	case formconfig.FieldTypeSelect:
		if len(field.Options) > 0 {
			var answer string
			if err := survey.AskOne(&survey.Select{Message: label, Options: field.Options, Help: field.Description}, &answer); err != nil {
				return err
			}
			return eng.WriteField(sec.ID, field.Name, answer)
		}
		return promptText(eng, sec, field, label)
	case formconfig.FieldTypeNumber:
		return promptNumber(eng, sec, field, label)
	default:
		return promptText(eng, sec, field, label)
	}
}

func promptText(eng *formstate.Engine, sec *formconfig.Section, field *formconfig.Field, label string) error {
	var answer string
	if def, ok := field.Default.(string); ok {
		answer = def
	}
	if err := survey.AskOne(&survey.Input{Message: label, Default: answer, Help: field.Description}, &answer); err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	return eng.WriteField(sec.ID, field.Name, answer)
}

func promptNumber(eng *formstate.Engine, sec *formconfig.Section, field *formconfig.Field, label string) error {
	for {
		var raw string
		if err := survey.AskOne(&survey.Input{Message: label, Help: field.Description}, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid number %q\n", raw)
			continue
		}
		return eng.WriteField(sec.ID, field.Name, parsed)
	}
}
