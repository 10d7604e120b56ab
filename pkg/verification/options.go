package verification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/bwmarrin/discordgo"
)

// Option is one of the colored buttons
type Option string

const (
	OptionRed    Option = "red"
	OptionBlue   Option = "blue"
	OptionGreen  Option = "green"
	OptionYellow Option = "yellow"
)

// Options lists every button in canonical order
var Options = []Option{OptionRed, OptionBlue, OptionGreen, OptionYellow}

// CustomIDPrefix starts every challenge button id
const CustomIDPrefix = "verify_"

// StartButtonID is the custom id of the panel button
const StartButtonID = "verify_start"

var errMalformedID = errors.New("malformed verification id")

func (o Option) valid() bool {
	for _, opt := range Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Emoji returns the colored circle shown on the button
func (o Option) Emoji() string {
	switch o {
	case OptionRed:
		return "🔴"
	case OptionBlue:
		return "🔵"
	case OptionGreen:
		return "🟢"
	case OptionYellow:
		return "🟡"
	}
	return ""
}

// Label returns the capitalized option name
func (o Option) Label() string {
	if o == "" {
		return ""
	}
	return strings.ToUpper(string(o[:1])) + string(o[1:])
}

// ButtonRef is a decoded challenge button id
type ButtonRef struct {
	Option      Option
	UserID      string
	ChallengeID string
}

// CustomID encodes a button as verify_<option>_<userId>_<challengeId>. The
// challenge id keeps buttons of a replaced challenge from answering the new one.
func CustomID(o Option, c Challenge) string {
	return CustomIDPrefix + string(o) + "_" + c.UserID + "_" + c.ID
}

// ParseCustomID decodes a button id produced by CustomID
func ParseCustomID(id string) (ButtonRef, error) {
	rest, ok := strings.CutPrefix(id, CustomIDPrefix)
	if !ok {
		return ButtonRef{}, errMalformedID
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return ButtonRef{}, errMalformedID
	}
	opt := Option(parts[0])
	if !opt.valid() {
		return ButtonRef{}, fmt.Errorf("%w: unknown option %q", errMalformedID, parts[0])
	}
	return ButtonRef{Option: opt, UserID: parts[1], ChallengeID: parts[2]}, nil
}

// PromptEmbed asks the member to click the correct color
func PromptEmbed(c Challenge) *discordgo.MessageEmbed {
	seconds := int(c.ExpiresAt.Sub(c.IssuedAt).Seconds())
	return embeds.Info("Verification",
		fmt.Sprintf("Click the **%s %s** button within **%d seconds** to get verified.", c.Correct.Emoji(), c.Correct.Label(), seconds))
}

// Buttons renders the options in the challenge's shuffled order. All buttons
// share the same style so the color is only conveyed by the label.
func Buttons(c Challenge, disabled bool) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(c.Order))
	for _, o := range c.Order {
		buttons = append(buttons, discordgo.Button{
			Label:    o.Label(),
			Emoji:    &discordgo.ComponentEmoji{Name: o.Emoji()},
			Style:    discordgo.SecondaryButton,
			CustomID: CustomID(o, c),
			Disabled: disabled,
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

// OutcomeEmbed describes a terminal state
func OutcomeEmbed(state State, err error) *discordgo.MessageEmbed {
	switch state {
	case StateVerified:
		return embeds.Success("Verified", "You have been verified. Welcome!")
	case StateExpired:
		return embeds.Warning("Verification expired", "You took too long. Run `/verify` to try again.")
	default:
		if err != nil {
			return embeds.Error("Verification failed", "I could not give you the verified role. Please contact a moderator.")
		}
		return embeds.Error("Verification failed", "That was the wrong button. Run `/verify` to try again.")
	}
}

// PanelEmbed is posted by /setup-verification
func PanelEmbed(roleID string) *discordgo.MessageEmbed {
	return embeds.Info("Server Verification",
		fmt.Sprintf("Press **Verify** below and click the color you are asked for to receive <@&%s>.", roleID))
}

// PanelComponents holds the single start button
func PanelComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "Verify", Emoji: &discordgo.ComponentEmoji{Name: "✅"}, Style: discordgo.SuccessButton, CustomID: StartButtonID},
	}}}
}
