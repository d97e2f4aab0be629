package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
)

func newAssessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess [ph,age,apgar,weight,pao2,malformations,intubation]",
		Short: "Run one assessment and print the report",
		Example: `  neorisk assess 7.25,2,5,1800,4.8,0,1
  neorisk assess --ph 7.25 --age 2 --apgar 5 --weight 1800 --pao2 4.8 --malformations 0 --intubation 1 --json`,
		RunE: runAssess,
	}

	for _, key := range domain.ParameterOrder {
		cmd.Flags().Float64(string(key), 0, "value for "+string(key))
	}
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func runAssess(cmd *cobra.Command, args []string) error {
	assessor, _, err := loadAssessor(cmd)
	if err != nil {
		return err
	}
	cfg := assessor.Config()

	var input domain.AssessmentInput
	if len(args) > 0 {
		// accept "7.25,2,..." as well as "7.25 2 ..." and any mix of the two
		fields := strings.FieldsFunc(strings.Join(args, " "), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if input, err = conversation.ParseBatch(cfg, strings.Join(fields, ",")); err != nil {
			return err
		}
	} else {
		input = domain.AssessmentInput{}
		for _, key := range domain.ParameterOrder {
			if !cmd.Flags().Changed(string(key)) {
				continue
			}
			v, _ := cmd.Flags().GetFloat64(string(key))
			input[key] = v
		}
	}

	result, err := assessor.Assess(cmd.Context(), input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprint(out, result.Report)
	return err
}
