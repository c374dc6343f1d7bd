// Package bus exposes the core operations on the session message bus under
// org.yasashiisyndicate.ireul_v0.Core. Tracks arrive as file descriptors;
// admission failures are reported as named errors carrying the numeric
// admission code.
package bus

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

const (
	busName          = "org.yasashiisyndicate.ireul"
	objectPath       = "/org/yasashiisyndicate/ireul_v0"
	interfaceName    = "org.yasashiisyndicate.ireul_v0.Core"
	enqueueErrorName = "org.yasashiisyndicate.ireul.EnqueueTrackError"
)

type coreObject struct {
	facade *core.Facade
	log    *zap.Logger
}

func readTrackFD(fd dbus.UnixFD) ([]byte, *dbus.Error) {
	file := os.NewFile(uintptr(fd), "ireul-track")
	if file == nil {
		return nil, dbus.MakeFailedError(os.ErrInvalid)
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	return buf, nil
}

func admissionError(err error) *dbus.Error {
	if code, ok := errors.AdmissionCodeOf(err); ok {
		return dbus.NewError(enqueueErrorName, []interface{}{uint32(code)})
	}
	return dbus.MakeFailedError(err)
}

// EnqueueFile reads the track from the supplied descriptor and admits it.
func (o *coreObject) EnqueueFile(fd dbus.UnixFD, metadata []vorbis.Comment) (uint64, *dbus.Error) {
	buf, derr := readTrackFD(fd)
	if derr != nil {
		return 0, derr
	}

	handle, err := o.facade.Enqueue(buf, metadata)
	if err != nil {
		o.log.Info("bus enqueue rejected", zap.Error(err))
		return 0, admissionError(err)
	}
	return uint64(handle), nil
}

// FastForward skips to the next track boundary.
func (o *coreObject) FastForward() *dbus.Error {
	o.facade.FastForward()
	return nil
}

// QueueStatus returns the queue snapshot as JSON.
func (o *coreObject) QueueStatus() (string, *dbus.Error) {
	queue := o.facade.Status()
	out, err := json.Marshal(queue)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(out), nil
}

// ReplaceFallback reads the track from the supplied descriptor and installs
// it as the fallback.
func (o *coreObject) ReplaceFallback(fd dbus.UnixFD, metadata []vorbis.Comment) *dbus.Error {
	buf, derr := readTrackFD(fd)
	if derr != nil {
		return derr
	}

	if err := o.facade.ReplaceFallback(buf, metadata); err != nil {
		o.log.Info("bus replace-fallback rejected", zap.Error(err))
		return admissionError(err)
	}
	return nil
}

// Serve registers the core object on the session bus and blocks until ctx
// is done.
func Serve(ctx context.Context, facade *core.Facade, log *zap.Logger) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return errors.NewBaseError(errors.ErrorTypeBus, "failed to connect to session bus", err)
	}
	defer conn.Close()

	obj := &coreObject{facade: facade, log: log}
	if err := conn.Export(obj, objectPath, interfaceName); err != nil {
		return errors.NewBaseError(errors.ErrorTypeBus, "failed to export core object", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagReplaceExisting)
	if err != nil {
		return errors.NewBaseError(errors.ErrorTypeBus, "failed to request bus name", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		log.Warn("not primary owner of bus name", zap.String("name", busName))
	}

	log.Info("listening on session bus", zap.String("name", busName),
		zap.String("path", objectPath))

	<-ctx.Done()
	return ctx.Err()
}
