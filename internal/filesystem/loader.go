package filesystem

import (
	"errors"
	"fmt"

	"github.com/iSundram/ion/internal/formats"
	"github.com/iSundram/ion/internal/payload"
	"github.com/iSundram/ion/pkg/models"
	"go.uber.org/zap"
)

// ErrTooLarge is returned for inputs above the configured size limit
var ErrTooLarge = errors.New("file exceeds size limit")

// fallbackFormat is used when no header matches and headers are optional
var fallbackFormat = &formats.Format{
	Name:        "none",
	PayloadMode: models.PayloadText,
	Delimiter:   formats.DefaultDelimiter,
	SkipLines:   formats.DefaultSkipLines,
}

// Loader turns a path into an EncodedFile. Payload extraction happens
// here, once per file.
type Loader struct {
	parser        *formats.Parser
	requireHeader bool
	maxSize       int64
	logger        *zap.Logger
}

// NewLoader creates a loader. maxSize <= 0 disables the size check.
func NewLoader(parser *formats.Parser, requireHeader bool, maxSize int64, logger *zap.Logger) *Loader {
	return &Loader{
		parser:        parser,
		requireHeader: requireHeader,
		maxSize:       maxSize,
		logger:        logger,
	}
}

// Load reads path, matches its preamble and extracts the payload.
// Structural problems are returned as *models.StructuralError.
func (l *Loader) Load(path string) (*models.EncodedFile, *formats.Format, error) {
	info, err := Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir {
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	if l.maxSize > 0 && info.Size > l.maxSize {
		return nil, nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size)
	}

	file, err := ReadFile(info)
	if err != nil {
		return nil, nil, err
	}

	header, format, ok := l.parser.Match(file.Raw)
	if !ok {
		if l.requireHeader {
			return nil, nil, &models.StructuralError{
				Path:   path,
				Reason: "no known preamble format matched",
				Err:    models.ErrNoHeader,
			}
		}
		l.logger.Debug("No header matched, continuing without one", zap.String("path", path))
		format = fallbackFormat
	}
	file.Header = header
	file.Format = format.Name

	_, p, err := payload.Extract(file.Raw, payload.Options{
		Mode:      format.PayloadMode,
		Delimiter: format.Delimiter,
		SkipLines: format.SkipLines,
	})
	if err != nil {
		var se *models.StructuralError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, nil, err
	}
	file.Payload = p

	l.logger.Debug("Loaded encoded file",
		zap.String("path", path),
		zap.String("format", format.Name),
		zap.String("payload_mode", string(p.Mode)),
		zap.Int("payload_size", p.Size()))

	return file, format, nil
}
