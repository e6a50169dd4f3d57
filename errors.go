package oracles

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Phases reported by Phase for a failed attack.
const (
	PhaseBlockSize = "blocksize"
	PhasePrefix    = "prefix"
	PhaseMode      = "ecb-mode"
	PhaseRecover   = "byte-recovery"
	PhaseCBC       = "cbc-crack"
)

var (
	// ErrDetection is returned when a property of the oracle (block size,
	// prefix length, cipher mode) cannot be established.
	ErrDetection = errors.New("detection failed")

	// ErrNotECB is returned when the mode check finds no repeated block.
	ErrNotECB = fmt.Errorf("%w: oracle is not encrypting in ECB mode", ErrDetection)

	// ErrOracle is returned when the oracle answers in a way no correct
	// deterministic oracle could.
	ErrOracle = errors.New("oracle misbehaved")

	// ErrAmbiguous is returned when candidate search keeps producing zero or
	// several valid answers after the retry bound.
	ErrAmbiguous = fmt.Errorf("%w: ambiguous candidates", ErrOracle)

	// ErrQueryBudget is returned once an attack spends its query budget.
	ErrQueryBudget = fmt.Errorf("%w: query budget exhausted", ErrOracle)

	// ErrInvalidCiphertext is returned for ciphertexts that are not
	// IV | block1 | ... | blockN.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Phase returns the attack phase an error was raised in, or "" if err did
// not come out of an attack.
func Phase(err error) string {
	if e, ok := oops.AsOops(err); ok {
		return e.Domain()
	}
	return ""
}

func detectionError(phase string) oops.OopsErrorBuilder {
	return oops.Code("DETECTION_FAILED").In(phase)
}

func oracleError(phase string) oops.OopsErrorBuilder {
	return oops.Code("ORACLE_ERROR").In(phase)
}
