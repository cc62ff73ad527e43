package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-vertex-transfer/pkg/core"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// PLYElement is one element block of the header, such as "vertex" or "face"
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// Element returns the named element, or nil when the file does not declare it
func (h *PLYHeader) Element(name string) *PLYElement {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// propertyIndex returns the index of the first property with one of the given names, or -1
func (e *PLYElement) propertyIndex(names ...string) int {
	for i, prop := range e.Properties {
		for _, name := range names {
			if prop.Name == name {
				return i
			}
		}
	}
	return -1
}

// LoadPLY loads a PLY file and returns its triangle data
func LoadPLY(filename string) (*MeshData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY file %q: %w", filename, err)
	}
	data.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return data, nil
}

// ReadPLY reads PLY data from r. Polygons are fan-triangulated.
func ReadPLY(r io.Reader) (*MeshData, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var values plyValueReader
	switch header.Format {
	case "binary_little_endian":
		values = &binaryValueReader{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryValueReader{reader: reader, order: binary.BigEndian}
	case "ascii":
		values = newASCIIValueReader(reader)
	default:
		return nil, fmt.Errorf("unsupported PLY format: %q", header.Format)
	}

	data := &MeshData{}
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readPLYVertices(values, &element, data)
		case "face":
			err = readPLYFaces(values, &element, data)
		default:
			err = skipPLYElement(values, &element)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(data.Vertices) == 0 {
		return nil, fmt.Errorf("PLY file has no vertices")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// parsePLYHeader parses the header up to and including the end_header line
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var current *PLYElement

	for lineNumber := 1; ; lineNumber++ {
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, fmt.Errorf("missing end_header")
			}
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		line = strings.TrimSpace(line)

		if lineNumber == 1 {
			if line != "ply" {
				return nil, fmt.Errorf("not a PLY file (missing magic number)")
			}
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("line %d: invalid format line", lineNumber)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("line %d: invalid element line", lineNumber)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("line %d: invalid element count: %s", lineNumber, parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]
		case "property":
			if current == nil {
				return nil, fmt.Errorf("line %d: property before any element", lineNumber)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			current.Properties = append(current.Properties, prop)
		default:
			return nil, fmt.Errorf("line %d: unknown header keyword %q", lineNumber, parts[0])
		}
	}

	if header.Format == "" {
		return nil, fmt.Errorf("missing format line")
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop := PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported list property types %s %s", prop.ListType, prop.DataType)
		}
		return prop, nil
	}

	prop := PLYProperty{Type: parts[0], Name: parts[1]}
	if getTypeSize(prop.Type) == 0 {
		return PLYProperty{}, fmt.Errorf("unsupported property type %s", prop.Type)
	}
	return prop, nil
}

// readPLYVertices reads positions plus optional normals and texture coordinates
func readPLYVertices(values plyValueReader, element *PLYElement, data *MeshData) error {
	position := [3]int{element.propertyIndex("x"), element.propertyIndex("y"), element.propertyIndex("z")}
	if position[0] < 0 || position[1] < 0 || position[2] < 0 {
		return fmt.Errorf("vertex element is missing x, y or z")
	}
	normal := [3]int{element.propertyIndex("nx"), element.propertyIndex("ny"), element.propertyIndex("nz")}
	hasNormals := normal[0] >= 0 && normal[1] >= 0 && normal[2] >= 0
	texCoord := [2]int{
		element.propertyIndex("u", "s", "texture_u"),
		element.propertyIndex("v", "t", "texture_v"),
	}
	hasTexCoords := texCoord[0] >= 0 && texCoord[1] >= 0

	data.Vertices = make([]core.Vec3, 0, element.Count)
	if hasNormals {
		data.Normals = make([]core.Vec3, 0, element.Count)
	}
	if hasTexCoords {
		data.TexCoords = make([]core.Vec2, 0, element.Count)
	}

	record := make([]float64, len(element.Properties))
	for i := 0; i < element.Count; i++ {
		for j, prop := range element.Properties {
			if prop.IsList {
				if err := skipPLYList(values, prop); err != nil {
					return fmt.Errorf("vertex %d: %w", i, err)
				}
				continue
			}
			value, err := values.next(prop.Type)
			if err != nil {
				return fmt.Errorf("vertex %d, property %s: %w", i, prop.Name, err)
			}
			record[j] = value
		}

		data.Vertices = append(data.Vertices, core.NewVec3(record[position[0]], record[position[1]], record[position[2]]))
		if hasNormals {
			data.Normals = append(data.Normals, core.NewVec3(record[normal[0]], record[normal[1]], record[normal[2]]))
		}
		if hasTexCoords {
			data.TexCoords = append(data.TexCoords, core.NewVec2(record[texCoord[0]], record[texCoord[1]]))
		}
	}
	return nil
}

// readPLYFaces reads vertex index lists and fan-triangulates them
func readPLYFaces(values plyValueReader, element *PLYElement, data *MeshData) error {
	data.Faces = make([]int, 0, element.Count*3)
	indices := make([]int, 0, 4)

	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if err := skipPLYProperty(values, prop); err != nil {
					return fmt.Errorf("face %d, property %s: %w", i, prop.Name, err)
				}
				continue
			}

			count, err := values.next(prop.ListType)
			if err != nil {
				return fmt.Errorf("face %d: failed to read vertex count: %w", i, err)
			}
			if count < 3 {
				return fmt.Errorf("face %d has %d vertices", i, int(count))
			}

			indices = indices[:0]
			for k := 0; k < int(count); k++ {
				index, err := values.next(prop.DataType)
				if err != nil {
					return fmt.Errorf("face %d: failed to read index %d: %w", i, k, err)
				}
				indices = append(indices, int(index))
			}
			for k := 1; k+1 < len(indices); k++ {
				data.Faces = append(data.Faces, indices[0], indices[k], indices[k+1])
			}
		}
	}
	return nil
}

func skipPLYElement(values plyValueReader, element *PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			if err := skipPLYProperty(values, prop); err != nil {
				return fmt.Errorf("%s %d, property %s: %w", element.Name, i, prop.Name, err)
			}
		}
	}
	return nil
}

func skipPLYProperty(values plyValueReader, prop PLYProperty) error {
	if prop.IsList {
		return skipPLYList(values, prop)
	}
	_, err := values.next(prop.Type)
	return err
}

func skipPLYList(values plyValueReader, prop PLYProperty) error {
	count, err := values.next(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := values.next(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 for unknown types
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// plyValueReader yields successive scalar values of the body as float64
type plyValueReader interface {
	next(dataType string) (float64, error)
}

type binaryValueReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryValueReader) next(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unsupported data type: %s", dataType)
	}
	raw := b.buf[:size]
	if _, err := io.ReadFull(b.reader, raw); err != nil {
		return 0, err
	}

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(raw))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(raw)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(raw))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(raw)), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(raw))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(raw)), nil
	case "char", "int8":
		return float64(int8(raw[0])), nil
	default:
		return float64(raw[0]), nil
	}
}

type asciiValueReader struct {
	scanner *bufio.Scanner
}

func newASCIIValueReader(reader io.Reader) *asciiValueReader {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanWords)
	return &asciiValueReader{scanner: scanner}
}

func (a *asciiValueReader) next(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	value, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", dataType, a.scanner.Text())
	}
	return value, nil
}
