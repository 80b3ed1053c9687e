package jsonutil

import (
	"bufio"
	"fmt"
	"strings"
	"testing"
)

func TestJSONParser_Parse(t *testing.T) {
	jsonStr := `asdds]][]}}{}}{,}{"foo":"bar","arr":[1, 2, 3]},[1,2,3]]asdsd[1,["a","b","c"],{"foo":"bar"}] sdasdasd`
	onObject := func(obj map[string]any) error {
		t.Log(obj)
		return nil
	}
	onArray := func(arr []any) error {
		t.Log(arr)
		return nil
	}
	parser, err := NewStreamParser(&StreamParserConfig{
		BufferSize: 128,
		Reader:     strings.NewReader(jsonStr),
		OnObject:   onObject,
		OnArray:    onArray,
	})
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	err = parser.Parse()
	if err != nil {
		fmt.Printf("Failed to parse JSON: %v\n", err)
	}
	io := bufio.NewReadWriter(
		bufio.NewReader(strings.NewReader("")),
		bufio.NewWriter(nil),
	)
	ioParser, err := NewStreamParser(&StreamParserConfig{
		BufferSize: 128,
		Reader:     io,
		OnObject:   onObject,
		OnArray:    onArray,
	})
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	for i := range jsonStr {
		_ = io.WriteByte(jsonStr[i])
		err = ioParser.Parse()
		if err != nil {
			fmt.Printf("Failed to parse JSON: %v\n", err)
		}
	}
}

func BenchmarkJSONParser_Parse(b *testing.B) {
	jsonStr := `asddsasadsad[{"foo": "bar", "arr": [1, 2, 3]}, [1,2,3]] asdasd [1,["a","b","c"],{"foo":"bar"}] sdasdasd`
	reader := strings.NewReader(jsonStr)
	parser, _ := NewStreamParser(&StreamParserConfig{BufferSize: 128, Reader: reader})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parser.Parse()
	}
	b.StopTimer()
}
