package models

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// savestate format
//
// file header
// [4]byte magic, uint32 version, uint32 crc32 of compressed body, uint32 body length
// remainder is gzip-compressed
//
// -- uncompressed body --
// [16]byte arch name
// uint32 register count, then (uint32 number, uint32 value) pairs
// uint32 mmr count, then (uint32 address, uint32 value) pairs
// uint32 region count, then per region: addr, prot, [32]byte name, uint32 len, raw bytes

const (
	SaveMagic   = "BFSS"
	SaveVersion = 1
)

type saveHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	Crc     uint32
	Length  uint32
}

type SnapshotWord struct {
	Key uint32
	Val uint32
}

type SnapshotRegion struct {
	Addr uint32
	Prot uint32
	Name string `struc:"[32]byte"`
	Size int    `struc:"uint32,sizeof=Data"`
	Data []byte
}

// Snapshot is the serializable state of a core: registers, memory mapped
// control registers and the backing store.
type Snapshot struct {
	Arch    string
	Regs    []SnapshotWord
	MMRs    []SnapshotWord
	Regions []SnapshotRegion
}

var saveOrder = binary.BigEndian

type archName struct {
	Name string `struc:"[16]byte"`
}

func packWords(s *StrucStream, words []SnapshotWord) error {
	if err := s.Pack(uint32(len(words))); err != nil {
		return err
	}
	for i := range words {
		if err := s.Pack(&words[i]); err != nil {
			return err
		}
	}
	return nil
}

func unpackWords(s *StrucStream) ([]SnapshotWord, error) {
	var count uint32
	if err := s.Unpack(&count); err != nil {
		return nil, err
	}
	words := make([]SnapshotWord, count)
	for i := range words {
		if err := s.Unpack(&words[i]); err != nil {
			return nil, err
		}
	}
	return words, nil
}

func (snap *Snapshot) Save(w io.Writer) error {
	var body bytes.Buffer
	s := &StrucStream{&body, saveOrder}
	if err := s.Pack(&archName{snap.Arch}); err != nil {
		return errors.Wrap(err, "packing arch")
	}
	if err := packWords(s, snap.Regs); err != nil {
		return errors.Wrap(err, "packing registers")
	}
	if err := packWords(s, snap.MMRs); err != nil {
		return errors.Wrap(err, "packing mmrs")
	}
	if err := s.Pack(uint32(len(snap.Regions))); err != nil {
		return err
	}
	for i := range snap.Regions {
		if err := s.Pack(&snap.Regions[i]); err != nil {
			return errors.Wrapf(err, "packing region %s", snap.Regions[i].Name)
		}
	}

	var tmp bytes.Buffer
	gz := gzip.NewWriter(&tmp)
	if _, err := body.WriteTo(gz); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	data := tmp.Bytes()

	hs := &StrucStream{&bytes.Buffer{}, saveOrder}
	header := &saveHeader{Magic: SaveMagic, Version: SaveVersion, Crc: crc32.ChecksumIEEE(data), Length: uint32(len(data))}
	if err := hs.Pack(header); err != nil {
		return err
	}
	if _, err := hs.Stream.(*bytes.Buffer).WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var header saveHeader
	hs := &StrucStream{struct {
		io.Reader
		io.Writer
	}{r, ioutil.Discard}, saveOrder}
	if err := hs.Unpack(&header); err != nil {
		return nil, errors.Wrap(err, "reading savestate header")
	}
	if header.Magic != SaveMagic {
		return nil, errors.New("invalid savestate magic")
	}
	if header.Version != SaveVersion {
		return nil, errors.Errorf("unsupported savestate version %d", header.Version)
	}
	data := make([]byte, header.Length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "reading savestate body")
	}
	if crc32.ChecksumIEEE(data) != header.Crc {
		return nil, errors.New("savestate checksum mismatch")
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decompressing savestate")
	}
	raw, err := ioutil.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing savestate")
	}

	s := &StrucStream{bytes.NewBuffer(raw), saveOrder}
	snap := &Snapshot{}
	var arch archName
	if err := s.Unpack(&arch); err != nil {
		return nil, err
	}
	snap.Arch = strings.TrimRight(arch.Name, "\x00")
	if snap.Regs, err = unpackWords(s); err != nil {
		return nil, errors.Wrap(err, "unpacking registers")
	}
	if snap.MMRs, err = unpackWords(s); err != nil {
		return nil, errors.Wrap(err, "unpacking mmrs")
	}
	var count uint32
	if err := s.Unpack(&count); err != nil {
		return nil, err
	}
	snap.Regions = make([]SnapshotRegion, count)
	for i := range snap.Regions {
		if err := s.Unpack(&snap.Regions[i]); err != nil {
			return nil, errors.Wrap(err, "unpacking region")
		}
		snap.Regions[i].Name = strings.TrimRight(snap.Regions[i].Name, "\x00")
	}
	return snap, nil
}
