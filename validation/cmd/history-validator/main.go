package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/cloudx-io/clickauction/report"
	"github.com/cloudx-io/clickauction/store"
	"github.com/cloudx-io/clickauction/validation"
)

func main() {
	// Define CLI flags
	var (
		input        = flag.String("input", "", "Exported history (JSON or CBOR), or a COSE_Sign1 signed export with --public-key")
		publicKey    = flag.String("public-key", "", "PEM public key used to verify a signed export")
		dbPath       = flag.String("db", "", "SQLite database written by clicksim -db")
		simulationID = flag.String("simulation", "", "Simulation ID to load from --db")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	// Show help
	if *help {
		showUsage()
		os.Exit(0)
	}

	if (*input == "") == (*dbPath == "") {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: exactly one of --input or --db is required\n")
		os.Exit(1)
	}

	var (
		validationInput *validation.HistoryValidationInput
		err             error
	)
	if *dbPath != "" {
		validationInput, err = loadValidationInput(context.Background(), *dbPath, *simulationID)
	} else {
		validationInput, err = readValidationInput(*input, *publicKey)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(2)
	}

	// Validate using library
	result, err := validation.ValidateHistory(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	// Output results
	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	// Exit with appropriate code
	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Click Auction History Validator")
	fmt.Println()
	fmt.Println("Replays the auction rules over an exported simulation history.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  history-validator --input <file> [options]")
	fmt.Println("  history-validator --db <file> --simulation <id> [options]")
	fmt.Println()
	fmt.Println("Input Flags (one source required):")
	fmt.Println("  --input <file>                    Exported history written by clicksim")
	fmt.Println("  --db <file>                       SQLite database written by clicksim -db")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --public-key <file>               PEM public key; treats --input as a signed export")
	fmt.Println("  --simulation <id>                 Simulation ID to load from --db")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Plain exports may be JSON or CBOR (clicksim -format json|cbor).")
	fmt.Println("  CSV exports carry no envelope and cannot be validated.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Validate a plain export")
	fmt.Println("  clicksim -rounds 500 -seed 7 -out history.json")
	fmt.Println("  history-validator --input history.json")
	fmt.Println()
	fmt.Println("  # Validate a signed export")
	fmt.Println("  clicksim -rounds 500 -signed-out history.cose -public-key-out history.pem")
	fmt.Println("  history-validator --input history.cose --public-key history.pem --format json")
	fmt.Println()
	fmt.Println("  # Validate a stored simulation")
	fmt.Println("  clicksim -rounds 500 -db sims.db")
	fmt.Println("  history-validator --db sims.db --simulation 5f0c...")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readValidationInput(inputPath, publicKeyPath string) (*validation.HistoryValidationInput, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", inputPath, err)
	}

	if publicKeyPath == "" {
		env, err := report.ReadEnvelope(data)
		if err != nil {
			return nil, fmt.Errorf("parse export: %w", err)
		}
		return &validation.HistoryValidationInput{Envelope: env}, nil
	}

	pemData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", publicKeyPath, err)
	}
	key, err := report.ParsePublicKeyPEM(pemData)
	if err != nil {
		return nil, err
	}
	return &validation.HistoryValidationInput{Signed: data, PublicKey: key}, nil
}

func loadValidationInput(ctx context.Context, dbPath, simulationID string) (*validation.HistoryValidationInput, error) {
	id, err := uuid.Parse(simulationID)
	if err != nil {
		return nil, fmt.Errorf("parse --simulation: %w", err)
	}

	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	env, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &validation.HistoryValidationInput{Envelope: env}, nil
}

func outputText(result *validation.HistoryValidationResult) {
	fmt.Println("Click Auction History Validator")
	fmt.Println("===============================")
	fmt.Println()

	fmt.Println("Summary:")
	if result.SignatureChecked {
		fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	}
	fmt.Printf("  History Hash Valid:      %v\n", result.HashValid)
	fmt.Printf("  Growth Valid:            %v\n", result.GrowthValid)
	fmt.Printf("  Clamping Valid:          %v\n", result.ClampingValid)
	fmt.Printf("  Winner Valid:            %v\n", result.WinnerValid)
	fmt.Printf("  Balance Reset Valid:     %v\n", result.BalanceResetValid)
	fmt.Printf("  Settlement Valid:        %v\n", result.SettlementValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("===============================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.HistoryValidationResult) {
	output := map[string]any{
		"valid":               result.IsValid(),
		"signature_checked":   result.SignatureChecked,
		"signature_valid":     result.SignatureValid,
		"hash_valid":          result.HashValid,
		"growth_valid":        result.GrowthValid,
		"clamping_valid":      result.ClampingValid,
		"winner_valid":        result.WinnerValid,
		"balance_reset_valid": result.BalanceResetValid,
		"settlement_valid":    result.SettlementValid,
		"details":             result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
