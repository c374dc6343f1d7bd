package core

import (
	"strings"
	"testing"

	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

func TestValidateTrackAccepts(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{0, 0, 960, 1920})
	track := mustValidate(t, buf)
	if len(track.Pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(track.Pages))
	}
}

func TestValidateTrackEmptyInput(t *testing.T) {
	_, err := ValidateTrack(nil, testSampleRate)
	if err == nil {
		t.Fatal("expected error")
	}
	assertAdmissionCode(t, err, errors.CodeInvalidTrack)
}

func TestValidateTrackMalformedFraming(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{0, 0, 960})
	buf[len(buf)-1] ^= 0xFF

	_, err := ValidateTrack(buf, testSampleRate)
	if err == nil {
		t.Fatal("expected error")
	}
	assertAdmissionCode(t, err, errors.CodeInvalidTrack)
}

func TestValidateTrackFirstGranuleNonZero(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{100, 200, 960})
	_, err := ValidateTrack(buf, testSampleRate)
	if err == nil || !strings.Contains(err.Error(), "non-zero") {
		t.Fatalf("expected first-granule error, got %v", err)
	}
}

func TestValidateTrackNonMonotonicGranule(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{0, 960, 480})
	_, err := ValidateTrack(buf, testSampleRate)
	if err == nil || !strings.Contains(err.Error(), "monotonic") {
		t.Fatalf("expected monotonic-granule error, got %v", err)
	}
}

func TestValidateTrackSampleRateMismatch(t *testing.T) {
	// engine at 48000, track claims 44100
	buf := trackBytes(t, 44100, []uint64{0, 0, 960})
	_, err := ValidateTrack(buf, testSampleRate)
	if err == nil {
		t.Fatal("expected error")
	}
	assertAdmissionCode(t, err, errors.CodeBadSampleRate)
}

func TestValidateTrackMissingIdentification(t *testing.T) {
	// comment header on both header pages, no identification
	buf := trackBytes(t, testSampleRate, []uint64{0, 0, 960})
	track := mustValidate(t, buf)

	replaced := mustBuildPage(t, [][]byte{commentPacket()}).Edit().
		SetGranule(0).
		SetSerial(track.Pages[0].Serial()).
		SetSequence(0).
		SetBos(true).
		Commit()

	var corrupt []byte
	corrupt = append(corrupt, replaced.Bytes()...)
	for _, page := range track.Pages[1:] {
		corrupt = append(corrupt, page.Bytes()...)
	}

	_, err := ValidateTrack(corrupt, testSampleRate)
	if err == nil || !strings.Contains(err.Error(), "identification") {
		t.Fatalf("expected missing-identification error, got %v", err)
	}
}

func TestValidateTrackMissingComment(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{0, 0, 960})
	track := mustValidate(t, buf)

	// swap the comment page for an opaque packet
	replaced := mustBuildPage(t, [][]byte{{0x7F, 0x01, 0x02}}).Edit().
		SetGranule(0).
		SetSerial(track.Pages[1].Serial()).
		SetSequence(1).
		Commit()

	var corrupt []byte
	corrupt = append(corrupt, track.Pages[0].Bytes()...)
	corrupt = append(corrupt, replaced.Bytes()...)
	for _, page := range track.Pages[2:] {
		corrupt = append(corrupt, page.Bytes()...)
	}

	_, err := ValidateTrack(corrupt, testSampleRate)
	if err == nil || !strings.Contains(err.Error(), "comment") {
		t.Fatalf("expected missing-comment error, got %v", err)
	}
}

func TestValidateTrackMixedSerials(t *testing.T) {
	buf := trackBytes(t, testSampleRate, []uint64{0, 0, 960})
	track := mustValidate(t, buf)

	retagged := track.Pages[2].Edit().SetSerial(track.Pages[2].Serial() + 1).Commit()
	var corrupt []byte
	corrupt = append(corrupt, track.Pages[0].Bytes()...)
	corrupt = append(corrupt, track.Pages[1].Bytes()...)
	corrupt = append(corrupt, retagged.Bytes()...)

	_, err := ValidateTrack(corrupt, testSampleRate)
	if err == nil || !strings.Contains(err.Error(), "serial") {
		t.Fatalf("expected serial error, got %v", err)
	}
}

func assertAdmissionCode(t *testing.T, err error, want errors.AdmissionCode) {
	t.Helper()
	code, ok := errors.AdmissionCodeOf(err)
	if !ok {
		t.Fatalf("error %v carries no admission code", err)
	}
	if code != want {
		t.Fatalf("admission code = %d, want %d", code, want)
	}
}
