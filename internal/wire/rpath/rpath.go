// Package rpath implements the two path translators spec.md §4.2
// names: RISC OS <-> ERA and RISC OS <-> SIBO, each enforcing
// reserved-character and length rules for its remote variant. Both
// translators are deliberately simple round-trip maps: '.' (RISC OS
// path separator) <-> '\' (the handheld's native separator), with a
// length cap and a reserved-character check per variant.
package rpath

import (
	"strings"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
)

// Limits match the two remote filing systems' maximum path lengths.
const (
	MaxLengthERA  = 256
	MaxLengthSIBO = 128
)

// reservedSIBO are characters the 16-bit filing system cannot
// represent in a leafname.
const reservedSIBO = "*?<>|\"+=[];:,^"

// reservedERA is a strict subset: EPOC is more permissive.
const reservedERA = "*?<>|\""

// ToERA translates a RISC OS path (using '.' as separator) into its
// ERA (32-bit) form (using '\'), rejecting reserved characters or
// paths too long for the remote to represent.
func ToERA(riscosPath string) (string, error) {
	return translate(riscosPath, reservedERA, MaxLengthERA)
}

// FromERA is the reverse of ToERA.
func FromERA(eraPath string) string {
	return untranslate(eraPath)
}

// ToSIBO translates a RISC OS path into its SIBO (16-bit) form.
func ToSIBO(riscosPath string) (string, error) {
	return translate(riscosPath, reservedSIBO, MaxLengthSIBO)
}

// FromSIBO is the reverse of ToSIBO.
func FromSIBO(siboPath string) string {
	return untranslate(siboPath)
}

// ValidateERA implements unified.validate_path (§4.2) for the ERA
// variant: it runs the path through ToERA then FromERA and returns
// the result, so callers can detect an unrepresentable path by
// comparing the result against their input.
func ValidateERA(riscosPath string) (string, error) {
	era, err := ToERA(riscosPath)
	if err != nil {
		return "", err
	}
	return FromERA(era), nil
}

// ValidateSIBO is ValidateERA's SIBO equivalent.
func ValidateSIBO(riscosPath string) (string, error) {
	sibo, err := ToSIBO(riscosPath)
	if err != nil {
		return "", err
	}
	return FromSIBO(sibo), nil
}

func translate(riscosPath, reserved string, maxLen int) (string, error) {
	if len(riscosPath) > maxLen {
		return "", perr.New(perr.KindBadName, "path %q exceeds %d characters", riscosPath, maxLen)
	}
	for _, r := range riscosPath {
		if r != '.' && strings.ContainsRune(reserved, r) {
			return "", perr.New(perr.KindBadName, "path %q contains reserved character %q", riscosPath, r)
		}
	}
	return strings.ReplaceAll(riscosPath, ".", "\\"), nil
}

func untranslate(remotePath string) string {
	return strings.ReplaceAll(remotePath, "\\", ".")
}
