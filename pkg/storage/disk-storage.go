package storage

import (
	"errors"
	"io"
	"os"
	"path"

	"github.com/bytedance/sonic"
)

// SaveJson writes to a temporary file first so readers never see a partial file.
func (p *DiskStorage) SaveJson(data any, name string) error {
	fileName, tmpFileName := p.GetFileName(name)
	if err := os.MkdirAll(path.Dir(fileName), 0755); err != nil {
		return err
	}

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	enc := sonic.ConfigStd.NewEncoder(file)
	enc.SetIndent("", "  ")
	err = enc.Encode(data)
	file.Close()
	if err != nil {
		os.Remove(tmpFileName)
		return err
	}

	return os.Rename(tmpFileName, fileName)
}

func (p *DiskStorage) LoadJson(data any, filename string) error {
	name, _ := p.GetFileName(filename)
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	err = sonic.ConfigStd.NewDecoder(file).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
