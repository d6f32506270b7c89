package runtime

import (
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/tags"
)

// step drives the interpreter once and builds the resulting line.
// The controller's state is not modified.
func (c *Controller) step() (domain.DialogueLine, error) {
	var text string
	if c.interp.CanContinue() {
		t, err := c.interp.Continue()
		if err != nil {
			return domain.DialogueLine{}, fmt.Errorf("continue: %w", err)
		}
		text = t
	}

	lineTags, err := tags.ParseAll(c.interp.CurrentTags())
	if err != nil {
		return domain.DialogueLine{}, fmt.Errorf("line tags: %w", err)
	}

	choices, err := c.choices()
	if err != nil {
		return domain.DialogueLine{}, err
	}

	return domain.DialogueLine{
		Text:    text,
		Tags:    lineTags,
		Choices: choices,
		Cue:     domain.ResolveCue(len(choices) > 0, c.interp.CanContinue()),
	}, nil
}

// choices converts the interpreter's pending choices, keeping its indices.
func (c *Controller) choices() ([]domain.DialogueChoice, error) {
	raw := c.interp.CurrentChoices()
	if len(raw) == 0 {
		return nil, nil
	}
	choices := make([]domain.DialogueChoice, 0, len(raw))
	for _, rc := range raw {
		choiceTags, err := tags.ParseAll(rc.Tags)
		if err != nil {
			return nil, fmt.Errorf("choice %d tags: %w", rc.Index, err)
		}
		choices = append(choices, domain.DialogueChoice{Index: rc.Index, Text: rc.Text, Tags: choiceTags})
	}
	return choices, nil
}
