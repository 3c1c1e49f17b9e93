package crawler

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// ErrNoMatchingMember is returned when an archive holds no file with the wanted extension.
var ErrNoMatchingMember = errors.New("no matching member in archive")

// maxMemberSize caps the decompressed size of a feed document.
const maxMemberSize = 1 << 30

// ArchiveReader reads the single data file of a compressed feed bundle.
type ArchiveReader struct {
	maxMemberSize int64
}

// NewArchiveReader creates an archive reader.
func NewArchiveReader() *ArchiveReader {
	return &ArchiveReader{maxMemberSize: maxMemberSize}
}

// ReadMember returns the name and content of the first member of the archive
// at path whose name ends with ext.
func (a *ArchiveReader) ReadMember(path, ext string) (string, []byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "could not open archive %s", path)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ext) {
			continue
		}

		content, err := a.readZipFile(f)
		if err != nil {
			return f.Name, nil, errors.Wrapf(err, "could not read %s from %s", f.Name, path)
		}

		return f.Name, content, nil
	}

	return "", nil, errors.Wrapf(ErrNoMatchingMember, "%s has no *%s file", path, ext)
}

func (a *ArchiveReader) readZipFile(zf *zip.File) ([]byte, error) {
	f, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lr := &io.LimitedReader{R: f, N: a.maxMemberSize + 1}

	content, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}

	if int64(len(content)) > a.maxMemberSize {
		return nil, errors.Errorf("member exceeds %d bytes", a.maxMemberSize)
	}

	return content, nil
}
