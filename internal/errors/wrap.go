package errors

import "fmt"

// Wrap prefixes err with msg and keeps the chain intact, so callers can
// still match the store and pipeline sentinels. A nil err stays nil:
//
//	if err := st.SaveDocument(ctx, projectID, kind, text); err != nil {
//	    return errors.Wrap(err, "save schema document")
//	}
//
// and further up:
//
//	if stderrors.Is(err, errors.ErrPersistence) {
//	    // store unavailable, the job is retryable
//	}
//
// Wrap once where an error leaves a package; stage errors already carry
// their stage name.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message:
//
//	return errors.Wrapf(err, "load job %s", jobID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
