package particle

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the data encoding of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary compressed format for pcd. Reading and writing it is not supported.
	PCDCompressed PCDType = 2
)

type pcdFieldType int

const (
	pcdPositionOnly pcdFieldType = 3
	pcdPositionBody pcdFieldType = 5
)

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	types  []string
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

// WritePCD writes a snapshot of the particles' positions, masses and charges.
func WritePCD(particles []*Particle, out io.Writer, outputType PCDType) error {
	if outputType == PCDCompressed {
		return errors.New("compressed pcd not supported")
	}
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z mass charge\n"+
		"SIZE 4 4 4 4 4\n"+
		"TYPE F F F F I\n"+
		"COUNT 1 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		len(particles), len(particles)); err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		if _, err := fmt.Fprintf(out, "DATA binary\n"); err != nil {
			return err
		}
	case PCDAscii:
		if _, err := fmt.Fprintf(out, "DATA ascii\n"); err != nil {
			return err
		}
	}

	buf := make([]byte, 20)
	for _, p := range particles {
		var err error
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.Pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Pos.Z)))
			binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(float32(p.Mass)))
			binary.LittleEndian.PutUint32(buf[16:], uint32(int32(p.Charge)))
			_, err = out.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%f %f %f %f %d\n", p.Pos.X, p.Pos.Y, p.Pos.Z, p.Mass, p.Charge)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadPCD reads particles from a pcd file. Files with only x y z fields produce neutral
// particles of defaultMass. The returned particles have not been added to a Set.
func ReadPCD(inRaw io.Reader, defaultMass float64) ([]*Particle, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header, defaultMass)
	case PCDBinary:
		return readPCDBinary(in, header, defaultMass)
	case PCDCompressed:
		return nil, errors.New("compressed pcd not supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	parseList := func() ([]uint64, error) {
		if len(tokens) != int(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in %s line", name)
		}
		out := make([]uint64, len(tokens))
		for i, token := range tokens {
			out[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s field %s", name, token)
			}
		}
		return out, nil
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch strings.Join(tokens, " ") {
		case "x y z":
			header.fields = pcdPositionOnly
		case "x y z mass charge":
			header.fields = pcdPositionBody
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if header.size, err = parseList(); err != nil {
			return err
		}
		for i, s := range header.size {
			if s != 4 {
				return errors.Errorf("unsupported size %d for field %d", s, i)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.types = tokens
	case "COUNT":
		if header.count, err = parseList(); err != nil {
			return err
		}
	case "WIDTH":
		if header.width, err = strconv.ParseUint(value, 10, 64); err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		if header.height, err = strconv.ParseUint(value, 10, 64); err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		// viewpoints are accepted but particles are always stored in world coordinates
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		points, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data %s", value)
		}
	}
	return nil
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, defaultMass float64) ([]*Particle, error) {
	particles := make([]*Particle, 0, header.points)
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		values := make([]float64, len(tokens))
		for j, token := range tokens {
			values[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		p, err := sliceToParticle(values, header, defaultMass)
		if err != nil {
			return nil, err
		}
		particles = append(particles, p)
	}
	return particles, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, defaultMass float64) ([]*Particle, error) {
	particles := make([]*Particle, 0, header.points)
	buf := make([]byte, 4)
	for i := 0; i < int(header.points); i++ {
		values := make([]float64, int(header.fields))
		for j := range values {
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "reading point %d", i)
			}
			bits := binary.LittleEndian.Uint32(buf)
			switch header.types[j] {
			case "I":
				values[j] = float64(int32(bits))
			case "U":
				values[j] = float64(bits)
			default:
				values[j] = float64(math.Float32frombits(bits))
			}
		}
		p, err := sliceToParticle(values, header, defaultMass)
		if err != nil {
			return nil, err
		}
		particles = append(particles, p)
	}
	return particles, nil
}

func sliceToParticle(values []float64, header pcdHeader, defaultMass float64) (*Particle, error) {
	pos := r3.Vector{X: values[0], Y: values[1], Z: values[2]}
	switch header.fields {
	case pcdPositionOnly:
		return New(pos, defaultMass, Neutral), nil
	case pcdPositionBody:
		charge := Charge(math.Round(values[4]))
		if charge < Negative || charge > Positive {
			return nil, errors.Errorf("invalid charge %v", values[4])
		}
		return New(pos, values[3], charge), nil
	default:
		return nil, errors.Errorf("unsupported pcd field type %d", header.fields)
	}
}
