// Package download materialises binary responses as local files.
package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("storefront.download")

// Scoped writes r to a temporary file named after name, hands its path to
// use and removes the file afterwards, whatever use does.
func Scoped(r io.Reader, name string, use func(path string) error) (err error) {
	f, err := os.CreateTemp("", "storefront-*-"+filepath.Base(name))
	if err != nil {
		return errors.Annotate(err, "creating temporary file")
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warningf("removing %s: %v", path, rmErr)
		}
	}()

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Annotatef(err, "writing %s", name)
	}
	return errors.Trace(use(path))
}

// ReceiptFileName is the file name a receipt is saved under.
func ReceiptFileName(orderID string) string {
	return fmt.Sprintf("order_%s_receipt.pdf", orderID)
}

// SaveReceipt stores a receipt body in dir and returns the file's path.
func SaveReceipt(body io.Reader, dir, orderID string) (string, error) {
	name := ReceiptFileName(orderID)
	dest := filepath.Join(dir, name)
	err := Scoped(body, name, func(tmp string) error {
		return copyFile(tmp, dest)
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	logger.Debugf("saved receipt of %s to %s", orderID, dest)
	return dest, nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return errors.Trace(err)
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = errors.Trace(closeErr)
		}
	}()
	_, err = io.Copy(out, in)
	return errors.Trace(err)
}
