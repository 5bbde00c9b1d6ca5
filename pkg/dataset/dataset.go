package dataset

import (
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/session"
)

// Dataset is an immutable handle on a frame bound to a session.
type Dataset struct {
	frame   *frame.Frame
	session *session.Session
}

// New wraps f as a dataset owned by sess. A nil frame is treated as empty.
func New(f *frame.Frame, sess *session.Session) *Dataset {
	if f == nil {
		f = frame.Empty()
	}
	return &Dataset{frame: f, session: sess}
}

// FromColumns builds a frame from columns and wraps it.
func FromColumns(sess *session.Session, columns ...frame.Column) (*Dataset, error) {
	f, err := frame.New(columns...)
	if err != nil {
		return nil, err
	}
	return New(f, sess), nil
}

// Frame returns the engine-native representation.
func (d *Dataset) Frame() *frame.Frame { return d.frame }

// Session returns the session the dataset is bound to.
func (d *Dataset) Session() *session.Session { return d.session }

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return d.frame.NumRows() }

// Schema returns the dataset's fields in order.
func (d *Dataset) Schema() []frame.Field { return d.frame.Schema() }
