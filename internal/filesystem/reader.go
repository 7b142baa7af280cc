package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iSundram/ion/pkg/models"
)

// ReadFile reads a file into an EncodedFile with Header and Payload
// still unset
func ReadFile(fileInfo *models.FileInfo) (*models.EncodedFile, error) {
	content, err := os.ReadFile(fileInfo.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &models.EncodedFile{
		Path:    fileInfo.Path,
		Name:    filepath.Base(fileInfo.Path),
		Size:    fileInfo.Size,
		ModTime: fileInfo.ModTime,
		Raw:     content,
	}, nil
}

// Stat returns FileInfo for a single path
func Stat(path string) (*models.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &models.FileInfo{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		IsHidden:  isHidden(info.Name()),
	}, nil
}

// ParseSize parses size string (e.g., "650K", "1M") to bytes
func ParseSize(sizeStr string) int64 {
	if len(sizeStr) == 0 {
		return 0
	}

	// Get last character (unit)
	last := sizeStr[len(sizeStr)-1]
	var multiplier int64 = 1

	switch last {
	case 'K', 'k':
		multiplier = 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	case 'M', 'm':
		multiplier = 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	case 'G', 'g':
		multiplier = 1024 * 1024 * 1024
		sizeStr = sizeStr[:len(sizeStr)-1]
	}

	var size int64
	fmt.Sscanf(sizeStr, "%d", &size)

	return size * multiplier
}
