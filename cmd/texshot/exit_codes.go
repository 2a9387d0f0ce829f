package main

import (
	"errors"
	"os"

	"github.com/alnah/go-texshot"
	"github.com/alnah/go-texshot/internal/config"
)

// Process exit codes. Custom codes stay below 126, which shells reserve.
const (
	ExitSuccess = 0 // every input rendered or skipped
	ExitGeneral = 1
	ExitUsage   = 2 // flags, config or option values
	ExitIO      = 3 // input or output files
	ExitBrowser = 4 // Chrome launch, page or capture
	ExitMarkup  = 5 // typesetter rejected the markup
)

// exitClasses maps error families to codes. The first matching class
// wins, so a markup failure raised during a page render exits 5, not 4.
var exitClasses = []struct {
	code int
	errs []error
}{
	{ExitMarkup, []error{texshot.ErrMarkupFailure, texshot.ErrEmptyMarkup}},
	{ExitBrowser, []error{
		texshot.ErrBrowserConnect, texshot.ErrPageCreate, texshot.ErrPageLoad,
		texshot.ErrStyleLoad, texshot.ErrElementGeometry, texshot.ErrScreenshot,
		texshot.ErrEngineCrashed, texshot.ErrEngineClosed,
	}},
	{ExitIO, []error{os.ErrNotExist, os.ErrPermission, ErrReadInput, ErrWriteImage, ErrNoInput}},
	{ExitUsage, []error{
		ErrUsage, ErrInvalidWorkers,
		config.ErrConfigNotFound, config.ErrConfigParse, config.ErrFieldTooLong, config.ErrInvalidValue,
		texshot.ErrTypesetterNotFound, texshot.ErrInvalidFontSize, texshot.ErrInvalidStylesheet, texshot.ErrInvalidMaxWidth,
	}},
}

// exitCodeFor returns the exit code for err, matching wrapped errors.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	for _, class := range exitClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.code
			}
		}
	}
	return ExitGeneral
}
