package openapi

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

const componentPrefix = "#/components/schemas/"

var timeType = reflect.TypeOf(time.Time{})

type schemaRegistry struct {
	byType map[reflect.Type]string
	byName map[string]reflect.Type
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		byType: make(map[reflect.Type]string),
		byName: make(map[string]reflect.Type),
	}
}

func (r *schemaRegistry) resolve(example any, components openapi3.Schemas) *openapi3.SchemaRef {
	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return r.fromType(reflect.TypeOf(example), components, map[reflect.Type]bool{})
}

func (r *schemaRegistry) fromType(t reflect.Type, components openapi3.Schemas, visiting map[reflect.Type]bool) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		ref := r.fromType(t.Elem(), components, visiting)
		if ref.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}, Nullable: true}}
		}
		ref.Value.Nullable = true
		return ref
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().WithMin(0).NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = r.fromType(t.Elem(), components, visiting)
		return schema.NewRef()
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: r.fromType(t.Elem(), components, visiting)}
		return schema.NewRef()
	case reflect.Struct:
		return r.fromStruct(t, components, visiting)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func (r *schemaRegistry) fromStruct(t reflect.Type, components openapi3.Schemas, visiting map[reflect.Type]bool) *openapi3.SchemaRef {
	if t == timeType {
		return openapi3.NewDateTimeSchema().NewRef()
	}
	if t.Name() == "" {
		return &openapi3.SchemaRef{Value: r.buildStruct(t, components, visiting)}
	}

	if name, ok := r.byType[t]; ok {
		return openapi3.NewSchemaRef(componentPrefix+name, nil)
	}
	if visiting[t] {
		return openapi3.NewObjectSchema().NewRef()
	}

	name := r.uniqueName(t.Name())
	r.byType[t] = name
	r.byName[name] = t

	visiting[t] = true
	components[name] = &openapi3.SchemaRef{Value: r.buildStruct(t, components, visiting)}
	delete(visiting, t)

	return openapi3.NewSchemaRef(componentPrefix+name, nil)
}

// uniqueName suffixes a number when two packages export the same type name.
func (r *schemaRegistry) uniqueName(base string) string {
	name := base
	for i := 2; ; i++ {
		if _, taken := r.byName[name]; !taken {
			return name
		}
		name = base + strconv.Itoa(i)
	}
}

func (r *schemaRegistry) buildStruct(t reflect.Type, components openapi3.Schemas, visiting map[reflect.Type]bool) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		ref := r.fromType(field.Type, components, visiting)
		doc, example := field.Tag.Get("doc"), field.Tag.Get("example")
		if doc != "" || example != "" {
			if ref.Ref != "" {
				ref = &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}}}
			}
			ref.Value.Description = doc
			if example != "" {
				ref.Value.Example = example
			}
		}
		if enum := field.Tag.Get("enum"); enum != "" && ref.Value != nil {
			for _, v := range strings.Split(enum, ",") {
				ref.Value.Enum = append(ref.Value.Enum, v)
			}
		}

		schema.Properties[name] = ref
		if !strings.Contains(opts, "omitempty") {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}
