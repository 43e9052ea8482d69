package saver

import (
	"io"
	"os"
	"path/filepath"

	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// WriterCloser keeps Writer interface and close function
type WriterCloser interface {
	io.Writer
	Close() error
}

// OpenFileFunc declares function to open file by name and return Writer
type OpenFileFunc func(fileName string) (WriterCloser, error)

// LocalFileSaver saves files on local disk
type LocalFileSaver struct {
	// StoragePath is the main folder to save into
	StoragePath  string
	OpenFileFunc OpenFileFunc
}

// NewLocalFileSaver creates LocalFileSaver instance
func NewLocalFileSaver(storagePath string) (*LocalFileSaver, error) {
	if storagePath == "" {
		return nil, errors.New("No storage path provided")
	}
	err := os.MkdirAll(storagePath, 0755)
	if err != nil {
		return nil, errors.Wrap(err, "Can't init storage dir "+storagePath)
	}
	f := LocalFileSaver{StoragePath: storagePath, OpenFileFunc: openFile}
	return &f, nil
}

// Save saves file to disk
func (fs LocalFileSaver) Save(name string, reader io.Reader) error {
	fileName := filepath.Join(fs.StoragePath, name)
	f, err := fs.OpenFileFunc(fileName)
	if err != nil {
		return errors.Wrap(err, "Can not create file "+fileName)
	}
	defer f.Close()
	savedBytes, err := io.Copy(f, reader)
	if err != nil {
		return errors.Wrap(err, "Can not save file "+fileName)
	}
	cmdapp.Log.Infof("Saved file %s. Size = %d b", fileName, savedBytes)
	return nil
}

// Load opens stored file for reading
func (fs LocalFileSaver) Load(name string) (*os.File, error) {
	return os.Open(filepath.Join(fs.StoragePath, name))
}

// Delete removes stored file. Missing file is not an error
func (fs LocalFileSaver) Delete(name string) error {
	fileName := filepath.Join(fs.StoragePath, name)
	err := os.Remove(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "Can not remove file "+fileName)
	}
	cmdapp.Log.Infof("Removed %s", fileName)
	return nil
}

// HealthyFunc returns liveness check function for the storage dir
func (fs LocalFileSaver) HealthyFunc() func() error {
	return func() error {
		st, err := os.Stat(fs.StoragePath)
		if err != nil {
			return errors.Wrap(err, "Can't stat storage dir")
		}
		if !st.IsDir() {
			return errors.New("Storage path is not a dir")
		}
		return nil
	}
}

func openFile(fileName string) (WriterCloser, error) {
	return os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}
