package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"helmet-safety-go/pkg/models"
)

// Save записывает весь журнал нарушений в JSON файл и возвращает число записей.
// Файл заменяется атомарно: при ошибке прежнее содержимое остается целым.
func (e *DecisionEngine) Save(path string) (int, error) {
	e.mu.Lock()
	data, err := json.MarshalIndent(e.incidents, "", "  ")
	count := len(e.incidents)
	e.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal incidents: %w", err)
	}

	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return 0, err
	}

	e.logger.WithField("path", path).Infof("Сохранено %d нарушений", count)
	return count, nil
}

// LoadIncidents читает журнал, сохраненный через Save
func LoadIncidents(path string) ([]models.SafetyIncident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read incidents file: %w", err)
	}

	var incidents []models.SafetyIncident
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, fmt.Errorf("failed to parse incidents file: %w", err)
	}
	return incidents, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Временный файл убирается при любой ошибке до rename
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write incidents: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync incidents file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close incidents file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set incidents file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	committed = true
	return nil
}
