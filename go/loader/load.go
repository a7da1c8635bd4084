package loader

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

var UnknownMagic = errors.New("Could not identify file magic.")

func LoadFile(path string) (models.Loader, error) {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Load(bytes.NewReader(p))
}

func Load(r io.ReaderAt) (models.Loader, error) {
	return openImage(r)
}
