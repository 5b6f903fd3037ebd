package schema

import (
	"fmt"

	"github.com/mrz1836/docgen/internal/constants"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// Validate checks the structural rules of a parsed schema: a non-empty
// directory structure, present opaque sections, and every criticality in
// [0,10] including nested directories. Violations wrap errors.ErrValidation.
func Validate(s *CommunicationSchema) error {
	if s == nil {
		return fmt.Errorf("%w: schema is nil", docerrors.ErrValidation)
	}
	if len(s.DirectoryStructure) == 0 {
		return fmt.Errorf("%w: directory_structure is empty", docerrors.ErrValidation)
	}

	sections := []struct {
		name  string
		value []byte
	}{
		{"global_communication_protocols", s.GlobalCommunicationProtocols},
		{"communication_matrix", s.CommunicationMatrix},
		{"platform_specific", s.PlatformSpecific},
		{"error_propagation", s.ErrorPropagation},
	}
	for _, sec := range sections {
		if !present(sec.value) {
			return fmt.Errorf("%w: %s is required", docerrors.ErrValidation, sec.name)
		}
	}

	return validateDirectories("directory_structure", s.DirectoryStructure)
}

func validateDirectories(path string, dirs map[string]DirectoryConfig) error {
	for name, dir := range dirs {
		p := path + "." + name
		if err := checkCriticality(p, dir.Criticality); err != nil {
			return err
		}
		for fileName, file := range dir.Files {
			if err := checkCriticality(p+".files."+fileName, file.Criticality); err != nil {
				return err
			}
		}
		if err := validateDirectories(p+".directories", dir.Directories); err != nil {
			return err
		}
	}
	return nil
}

func checkCriticality(path string, value int) error {
	if value < 0 || value > constants.MaxCriticality {
		return fmt.Errorf("%w: %s.criticality %d out of range [0,%d]",
			docerrors.ErrValidation, path, value, constants.MaxCriticality)
	}
	return nil
}
