package reader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/wavetrace/asset"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/types"
)

type plyFormat uint8

const (
	plyASCII plyFormat = iota
	plyBinaryLittleEndian
)

type plyProperty struct {
	name string

	// Scalar type or, for lists, the item type.
	dataType string

	// Set for list properties.
	isList    bool
	countType string
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

func (el *plyElement) propertyIndex(names ...string) int {
	for index, prop := range el.properties {
		for _, name := range names {
			if prop.name == name {
				return index
			}
		}
	}
	return -1
}

type plyReader struct {
	logger log.Logger

	format   plyFormat
	elements []*plyElement

	vertices []types.Vec3
	normals  []types.Vec3
}

// Create a new reader for the stanford polygon (ply) format.
func newPlyReader() *plyReader {
	return &plyReader{
		logger: log.New("ply reader"),
	}
}

// Read a ply mesh. All faces are assigned the default material.
func (r *plyReader) Read(res *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, res.Path())
	start := time.Now()

	br := bufio.NewReader(res)
	if err := r.parseHeader(br); err != nil {
		return nil, fmt.Errorf("ply reader: %s: %w", res.Path(), err)
	}

	sc := &scene.Scene{
		Materials:   []scene.Material{scene.DefaultMaterial},
		Environment: scene.DefaultEnvironment,
	}

	var body plyBody
	if r.format == plyASCII {
		body = &plyASCIIBody{scanner: bufio.NewScanner(br)}
	} else {
		body = &plyBinaryBody{r: br}
	}

	for _, el := range r.elements {
		var err error
		switch el.name {
		case "vertex":
			err = r.readVertices(body, el)
		case "face":
			sc.Primitives, err = r.readFaces(body, el)
		default:
			err = skipElement(body, el)
		}
		if err != nil {
			return nil, fmt.Errorf("ply reader: %s: element %q: %w", res.Path(), el.name, err)
		}
	}

	r.logger.Noticef("parsed scene in %d ms (%d vertices, %d primitives)", time.Since(start).Nanoseconds()/1e6, len(r.vertices), len(sc.Primitives))
	return sc, nil
}

func (r *plyReader) parseHeader(br *bufio.Reader) error {
	var curElement *plyElement
	hasFormat := false
	for lineNum := 1; ; lineNum++ {
		line, err := br.ReadString('\n')
		if err != nil {
			return fmt.Errorf("unexpected end of header at line %d", lineNum)
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		if lineNum == 1 {
			if tokens[0] != "ply" {
				return fmt.Errorf("missing ply magic")
			}
			continue
		}

		switch tokens[0] {
		case "comment", "obj_info":
		case "format":
			if len(tokens) != 3 {
				return fmt.Errorf("line %d: malformed format statement", lineNum)
			}
			switch tokens[1] {
			case "ascii":
				r.format = plyASCII
			case "binary_little_endian":
				r.format = plyBinaryLittleEndian
			default:
				return fmt.Errorf("line %d: unsupported format %q", lineNum, tokens[1])
			}
			hasFormat = true
		case "element":
			if len(tokens) != 3 {
				return fmt.Errorf("line %d: malformed element statement", lineNum)
			}
			count, err := strconv.Atoi(tokens[2])
			if err != nil || count < 0 {
				return fmt.Errorf("line %d: invalid element count %q", lineNum, tokens[2])
			}
			curElement = &plyElement{name: tokens[1], count: count}
			r.elements = append(r.elements, curElement)
		case "property":
			if curElement == nil {
				return fmt.Errorf("line %d: property without element", lineNum)
			}
			prop, err := parseProperty(tokens)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
			curElement.properties = append(curElement.properties, prop)
		case "end_header":
			if !hasFormat {
				return fmt.Errorf("missing format statement")
			}
			return nil
		default:
			return fmt.Errorf("line %d: unexpected header statement %q", lineNum, tokens[0])
		}
	}
}

func parseProperty(tokens []string) (plyProperty, error) {
	if len(tokens) == 5 && tokens[1] == "list" {
		if scalarSize(tokens[2]) == 0 || scalarSize(tokens[3]) == 0 {
			return plyProperty{}, fmt.Errorf("unsupported list property types %q %q", tokens[2], tokens[3])
		}
		return plyProperty{name: tokens[4], dataType: tokens[3], isList: true, countType: tokens[2]}, nil
	}
	if len(tokens) != 3 || scalarSize(tokens[1]) == 0 {
		return plyProperty{}, fmt.Errorf("malformed property statement %q", strings.Join(tokens, " "))
	}
	return plyProperty{name: tokens[2], dataType: tokens[1]}, nil
}

// Size in bytes of a ply scalar type or 0 if the type is unknown.
func scalarSize(dataType string) int {
	switch dataType {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "int32", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

func (r *plyReader) readVertices(body plyBody, el *plyElement) error {
	pos := [3]int{el.propertyIndex("x"), el.propertyIndex("y"), el.propertyIndex("z")}
	if pos[0] < 0 || pos[1] < 0 || pos[2] < 0 {
		return fmt.Errorf("missing x, y or z property")
	}
	norm := [3]int{el.propertyIndex("nx"), el.propertyIndex("ny"), el.propertyIndex("nz")}
	hasNormals := norm[0] >= 0 && norm[1] >= 0 && norm[2] >= 0

	r.vertices = make([]types.Vec3, el.count)
	if hasNormals {
		r.normals = make([]types.Vec3, el.count)
	}

	values := make([]float64, len(el.properties))
	for i := 0; i < el.count; i++ {
		if err := body.beginRecord(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		for propIndex, prop := range el.properties {
			if prop.isList {
				if err := skipList(body, prop); err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				continue
			}
			val, err := body.scalar(prop.dataType)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			values[propIndex] = val
		}

		r.vertices[i] = types.XYZ(float32(values[pos[0]]), float32(values[pos[1]]), float32(values[pos[2]]))
		if hasNormals {
			r.normals[i] = types.XYZ(float32(values[norm[0]]), float32(values[norm[1]]), float32(values[norm[2]]))
		}
	}
	return nil
}

func (r *plyReader) readFaces(body plyBody, el *plyElement) ([]scene.Primitive, error) {
	listIndex := el.propertyIndex("vertex_indices", "vertex_index")
	if listIndex < 0 || !el.properties[listIndex].isList {
		return nil, fmt.Errorf("missing vertex_indices list property")
	}

	prims := make([]scene.Primitive, 0, el.count)
	var indices []int
	for i := 0; i < el.count; i++ {
		if err := body.beginRecord(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		for propIndex, prop := range el.properties {
			var err error
			switch {
			case propIndex == listIndex:
				indices, err = readIndexList(body, prop, len(r.vertices))
			case prop.isList:
				err = skipList(body, prop)
			default:
				_, err = body.scalar(prop.dataType)
			}
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}

		if len(indices) < 3 {
			return nil, fmt.Errorf("record %d: face with %d vertices", i, len(indices))
		}

		// Triangulate as a fan around the first vertex
		for j := 1; j+1 < len(indices); j++ {
			a, b, c := indices[0], indices[j], indices[j+1]
			if r.normals != nil {
				prims = append(prims, scene.NewTriangle(r.vertices[a], r.vertices[b], r.vertices[c], 0, r.normals[a], r.normals[b], r.normals[c]))
			} else {
				prims = append(prims, scene.NewTriangle(r.vertices[a], r.vertices[b], r.vertices[c], 0))
			}
		}
	}
	return prims, nil
}

func readIndexList(body plyBody, prop plyProperty, vertexCount int) ([]int, error) {
	count, err := body.scalar(prop.countType)
	if err != nil {
		return nil, err
	}
	out := make([]int, int(count))
	for i := range out {
		val, err := body.scalar(prop.dataType)
		if err != nil {
			return nil, err
		}
		if val < 0 || int(val) >= vertexCount {
			return nil, fmt.Errorf("vertex index %d out of bounds", int(val))
		}
		out[i] = int(val)
	}
	return out, nil
}

func skipList(body plyBody, prop plyProperty) error {
	count, err := body.scalar(prop.countType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err = body.scalar(prop.dataType); err != nil {
			return err
		}
	}
	return nil
}

func skipElement(body plyBody, el *plyElement) error {
	for i := 0; i < el.count; i++ {
		if err := body.beginRecord(); err != nil {
			return err
		}
		for _, prop := range el.properties {
			var err error
			if prop.isList {
				err = skipList(body, prop)
			} else {
				_, err = body.scalar(prop.dataType)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// A plyBody decodes element records.
type plyBody interface {
	// Called before decoding the properties of each record.
	beginRecord() error

	// Decode the next scalar value of the given type.
	scalar(dataType string) (float64, error)
}

type plyASCIIBody struct {
	scanner *bufio.Scanner
	tokens  []string
}

func (b *plyASCIIBody) beginRecord() error {
	for b.scanner.Scan() {
		if b.tokens = strings.Fields(b.scanner.Text()); len(b.tokens) != 0 {
			return nil
		}
	}
	if err := b.scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

func (b *plyASCIIBody) scalar(_ string) (float64, error) {
	if len(b.tokens) == 0 {
		return 0, fmt.Errorf("not enough values in record")
	}
	val, err := strconv.ParseFloat(b.tokens[0], 64)
	b.tokens = b.tokens[1:]
	return val, err
}

type plyBinaryBody struct {
	r   io.Reader
	buf [8]byte
}

func (b *plyBinaryBody) beginRecord() error { return nil }

func (b *plyBinaryBody) scalar(dataType string) (float64, error) {
	size := scalarSize(dataType)
	if _, err := io.ReadFull(b.r, b.buf[:size]); err != nil {
		return 0, err
	}

	data := b.buf[:size]
	switch dataType {
	case "char", "int8":
		return float64(int8(data[0])), nil
	case "uchar", "uint8":
		return float64(data[0]), nil
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(data))), nil
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(data)), nil
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(data))), nil
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(data)), nil
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	}
}
