package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/service"
)

const (
	CommandStart  = "/start"
	CommandHelp   = "/help"
	CommandCancel = "/cancel"
)

const (
	msgUnknownCommand = "Unknown command. Send /help for the list of commands."
	msgCancelled      = "Assessment cancelled. Send /start to begin again."
	msgRestart        = "To run a new assessment send /start."
	msgStoreDown      = "The service is temporarily unable to keep your progress. Please try again in a moment."
	msgResend         = "Another message for this chat was processed at the same time, so this one was not recorded. Please send it again."
	msgInternal       = "The assessment could not be completed because of an internal configuration problem. The issue has been logged."
)

func welcomeMessage(cfg *domain.RiskConfig) string {
	var b strings.Builder
	b.WriteString("Welcome to the neonatal transport risk assessment.\n\n")
	b.WriteString("I will ask for the seven parameters one at a time. ")
	b.WriteString("You can also send all of them in one message, separated by commas.\n")
	b.WriteString("Send /help for detailed instructions or /cancel to stop.\n\n")
	b.WriteString("First parameter: ")
	b.WriteString(parameterPrompt(cfg, domain.ParameterOrder[0]))
	return b.String()
}

func helpMessage(cfg *domain.RiskConfig) string {
	var b strings.Builder
	b.WriteString("How to use this assistant:\n\n")
	b.WriteString("1. Prepare the patient's blood gas results, anthropometric data and condition at birth.\n\n")
	fmt.Fprintf(&b, "2. Send all %d parameters separated by commas, in this order:\n", domain.ParameterCount)
	for _, key := range domain.ParameterOrder {
		spec, err := cfg.Parameter(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "   - %s", spec.DisplayName())
		if spec.Unit != "" && !spec.Binary {
			fmt.Fprintf(&b, " (%s)", spec.Unit)
		}
		if spec.Binary {
			b.WriteString(" (0/1)")
		}
		b.WriteString("\n")
	}
	b.WriteString("   or send /start to enter them one at a time.\n\n")
	b.WriteString("3. You will receive the total risk score, the risk level, the estimated ")
	b.WriteString("mortality probability, a per-parameter breakdown and a transport recommendation.\n\n")
	fmt.Fprintf(&b, "Example: %s\n", exampleBatch(cfg))
	return b.String()
}

// exampleBatch joins each parameter's configured example in canonical order.
func exampleBatch(cfg *domain.RiskConfig) string {
	examples := make([]string, 0, domain.ParameterCount)
	for _, key := range domain.ParameterOrder {
		spec, err := cfg.Parameter(key)
		if err != nil || spec.Example == "" {
			return "7.25, 2, 5, 1800, 4.8, 0, 1"
		}
		examples = append(examples, spec.Example)
	}
	return strings.Join(examples, ", ")
}

func parameterPrompt(cfg *domain.RiskConfig, key domain.ParameterKey) string {
	spec, err := cfg.Parameter(key)
	if err != nil {
		return string(key)
	}

	var b strings.Builder
	b.WriteString(spec.DisplayName())
	if spec.Unit != "" && !spec.Binary {
		fmt.Fprintf(&b, ", %s", spec.Unit)
	}
	if spec.Description != "" {
		fmt.Fprintf(&b, " (%s", spec.Description)
		if spec.Example != "" {
			fmt.Fprintf(&b, "; for example: %s", spec.Example)
		}
		b.WriteString(")")
	}
	return b.String()
}

func nextPrompt(cfg *domain.RiskConfig, key domain.ParameterKey) string {
	return "Next parameter: " + parameterPrompt(cfg, key)
}

// errorMessage renders a recoverable input error with the expected format.
func errorMessage(cfg *domain.RiskConfig, err error, retry domain.ParameterKey) string {
	var b strings.Builder
	b.WriteString("Invalid input: ")
	b.WriteString(describeInputError(cfg, err))
	if retry != "" {
		b.WriteString("\nPlease enter ")
		b.WriteString(parameterPrompt(cfg, retry))
		return b.String()
	}
	fmt.Fprintf(&b, "\nSend all %d values again, separated by commas, or send /start to enter them one at a time.",
		domain.ParameterCount)
	return b.String()
}

func describeInputError(cfg *domain.RiskConfig, err error) string {
	var validation *domain.ValidationError
	var outOfRange *domain.ValueOutOfRangeError

	switch {
	case errors.As(err, &outOfRange):
		spec, specErr := cfg.Parameter(outOfRange.Key)
		if specErr != nil {
			return err.Error()
		}
		return fmt.Sprintf("value %s is out of the acceptable range for %s (%s to %s%s)",
			service.FormatValue(outOfRange.Value, spec.Decimals), spec.DisplayName(),
			service.FormatValue(outOfRange.Min, spec.Decimals), service.FormatValue(outOfRange.Max, spec.Decimals),
			unitSuffix(spec))
	case errors.As(err, &validation):
		spec, specErr := cfg.Parameter(domain.ParameterKey(validation.Field))
		if specErr != nil {
			return validation.Message
		}
		return fmt.Sprintf("%s: %s", spec.DisplayName(), validation.Message)
	default:
		return err.Error()
	}
}

func unitSuffix(spec *domain.ParameterSpec) string {
	if spec.Unit == "" || spec.Binary {
		return ""
	}
	return " " + spec.Unit
}
