// Copyright 2024 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
)

// DatePlaceholder in a file pattern is replaced by the YYYYMMDD date.
const DatePlaceholder = "{date}"

// Supported file formats, selected by the file extension.
const (
	ExtParquet = ".parquet"
	ExtCSV     = ".csv"
)

// Store is the output tree of persisted datasets. A file's existence is the
// only record that its dataset has been persisted; files are created once and
// never overwritten or deleted.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The directory is
// created lazily by the first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root directory of the store.
func (s *Store) Root() string { return s.root }

// FileName expands the pattern for the date. An extension other than the
// supported ones is replaced by ExtParquet, so that the name checked for
// existence is always the name that gets written.
func FileName(pattern string, date Date) string {
	name := strings.ReplaceAll(pattern, DatePlaceholder, date.Compact())
	switch ext := filepath.Ext(name); ext {
	case ExtParquet, ExtCSV:
		return name
	default:
		return strings.TrimSuffix(name, ext) + ExtParquet
	}
}

// Path is the canonical file path of a dataset in dir for the date.
func (s *Store) Path(dir, pattern string, date Date) string {
	return filepath.Join(s.root, dir, FileName(pattern, date))
}

// Exists checks whether the file at path has been persisted.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write the dataset to path in the format given by its extension, creating
// the parent directories as needed. Nulls are filled in before writing. The
// data is first written to a temporary file in the same directory and then
// renamed, so an interrupted write never leaves a partial file at path.
func (s *Store) Write(path string, d *Dataset) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Annotate(err, "failed to create directory '%s'", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Annotate(err, "failed to create a temporary file in '%s'", dir)
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp) // no-op after a successful rename

	filled := d.FillNulls()
	switch filepath.Ext(path) {
	case ExtCSV:
		err = writeCSVFile(tmp, filled)
	case ExtParquet:
		err = writeParquetFile(tmp, filled)
	default:
		err = errors.Reason("unsupported file extension: '%s'", path)
	}
	if err != nil {
		return errors.Annotate(err, "failed to write '%s'", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Annotate(err, "failed to rename '%s' to '%s'", tmp, path)
	}
	return nil
}
