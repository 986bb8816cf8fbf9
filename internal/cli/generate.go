package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/report"
	"github.com/tfg-report-server/internal/service"
)

func newGenerateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a report from a JSON request file",
		Long: "Reads a report request ({patient, measurements, options}, the body accepted by " +
			"POST /api/v1/reports) and writes the PDF. Use --input - to read stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			chartPath, _ := cmd.Flags().GetString("chart")
			return opts.runGenerate(cmd, input, output, chartPath)
		},
	}

	cmd.Flags().StringP("input", "i", "", "Request JSON file, or - for stdin (required)")
	cmd.Flags().StringP("output", "o", report.FileName, "PDF output path")
	cmd.Flags().String("chart", "", "Also write the chart PNG to this path")
	cmd.MarkFlagRequired("input")

	return cmd
}

func (o *options) runGenerate(cmd *cobra.Command, input, output, chartPath string) error {
	body, err := readRequest(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	req, err := body.ToDomain()
	if err != nil {
		return err
	}

	a, err := o.bootstrap("cli")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := service.WithRequestID(cmd.Context(), uuid.New().String())
	r, err := a.service.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if err := os.WriteFile(output, r.PDF, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if chartPath != "" {
		if err := os.WriteFile(chartPath, r.Chart, 0644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	for _, line := range report.SummaryLines(r.Estimate) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Relatório salvo em %s\n", output)
	return nil
}

// readRequest decodes and shape-checks a request body from a file or stdin.
func readRequest(stdin io.Reader, input string) (*domain.ReportRequestBody, error) {
	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var body domain.ReportRequestBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&body); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &body, nil
}
