// Command protocol-schema emits a JSON schema for the websocket protocol,
// for client validation and editor tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"github.com/Kurubik/snake/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// messagePayloads maps every envelope type tag to its payload shape.
var messagePayloads = []struct {
	Type    string
	Payload any
}{
	{proto.TypeJoin, proto.Join{}},
	{proto.TypeCreateRoom, proto.CreateRoom{}},
	{proto.TypeReady, proto.Ready{}},
	{proto.TypeInput, proto.Input{}},
	{proto.TypeSpectate, proto.Spectate{}},
	{proto.TypePing, proto.Ping{}},
	{proto.TypeBoost, proto.Boost{}},
	{proto.TypeFire, proto.Fire{}},
	{proto.TypeRoomCreated, proto.RoomCreated{}},
	{proto.TypeJoined, proto.Joined{}},
	{proto.TypeLobby, proto.Lobby{}},
	{proto.TypeStart, proto.Start{}},
	{proto.TypeState, proto.State{}},
	{proto.TypeEnded, proto.Ended{}},
	{proto.TypeError, proto.Error{}},
	{proto.TypePong, proto.Pong{}},
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	variants := make([]*jsonschema.Schema, 0, len(messagePayloads))
	for _, message := range messagePayloads {
		payload := reflector.ReflectFromType(reflect.TypeOf(message.Payload))
		payload.Version = ""
		payload.Title = message.Type + " payload"

		properties := orderedmap.New()
		properties.Set("type", &jsonschema.Schema{Type: "string", Enum: []interface{}{message.Type}})
		properties.Set("data", payload)

		variants = append(variants, &jsonschema.Schema{
			Type:        "object",
			Title:       message.Type,
			Description: fmt.Sprintf("Envelope for %q messages.", message.Type),
			Properties:  properties,
			Required:    []string{"type"},
		})
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Snake Arcade Protocol",
		Description: "Envelopes exchanged over the websocket transport.",
		OneOf:       variants,
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
