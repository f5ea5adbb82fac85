package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

var errAborted = errors.New("prompt aborted")

func promptRender(ctx context.Context, name string, isAMP bool) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	if strings.TrimSpace(name) == "" {
		prompt := &survey.Input{
			Message: "Template name:",
			Help:    "Name as passed to the loader, e.g. blog/post.html",
		}
		validator := func(ans any) error {
			if s, _ := ans.(string); strings.TrimSpace(s) == "" {
				return fmt.Errorf("template name is required")
			}
			return nil
		}
		if err := survey.AskOne(prompt, &name, survey.WithValidator(validator)); err != nil {
			return "", false, translateSurveyErr(err)
		}
	}

	confirm := &survey.Confirm{
		Message: "Render the AMP variant?",
		Default: isAMP,
	}
	if err := survey.AskOne(confirm, &isAMP); err != nil {
		return "", false, translateSurveyErr(err)
	}
	return name, isAMP, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}
