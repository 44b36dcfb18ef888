package qdrant

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/filter"
)

func pointID(id int64) *qdrant.PointId {
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: uint64(id)}}
}

func denseVector(v []float32) *qdrant.Vector {
	return &qdrant.Vector{Vector: &qdrant.Vector_Dense{Dense: &qdrant.DenseVector{Data: v}}}
}

func toVectors(vectors map[string][]float32) *qdrant.Vectors {
	if v, ok := vectors[domain.VectorDefault]; ok && len(vectors) == 1 {
		return &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: denseVector(v)}}
	}
	named := make(map[string]*qdrant.Vector, len(vectors))
	for name, v := range vectors {
		named[name] = denseVector(v)
	}
	return &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vectors{Vectors: &qdrant.NamedVectors{Vectors: named}}}
}

func intValue(v int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func listValue(vs []int64) *qdrant.Value {
	values := make([]*qdrant.Value, len(vs))
	for i, v := range vs {
		values[i] = intValue(v)
	}
	return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
}

// toPayload converts the domain payload; list fields are integer arrays, absent scalars are omitted.
func toPayload(p *domain.Payload, listFields func(string) bool) map[string]*qdrant.Value {
	out := map[string]*qdrant.Value{
		domain.FieldUserID:  intValue(p.UserID),
		domain.FieldContent: stringValue(p.Content),
		domain.FieldName:    stringValue(p.Name),
		domain.FieldPhoto:   stringValue(p.Photo),
		domain.FieldAddress: stringValue(p.Address),
	}
	for _, key := range domain.FilterableFields {
		vals := p.Ints(key)
		if listFields(key) {
			out[key] = listValue(vals)
			continue
		}
		if len(vals) > 0 {
			out[key] = intValue(vals[0])
		}
	}
	return out
}

func fromPayload(m map[string]*qdrant.Value) domain.Payload {
	var p domain.Payload
	if v, ok := m[domain.FieldUserID]; ok {
		p.UserID = v.GetIntegerValue()
	}
	for _, key := range domain.FilterableFields {
		v, ok := m[key]
		if !ok {
			continue
		}
		if list := v.GetListValue(); list != nil {
			vals := make([]int64, 0, len(list.GetValues()))
			for _, item := range list.GetValues() {
				if _, isInt := item.GetKind().(*qdrant.Value_IntegerValue); isInt {
					vals = append(vals, item.GetIntegerValue())
				}
			}
			p.SetInts(key, vals)
			continue
		}
		if _, isInt := v.GetKind().(*qdrant.Value_IntegerValue); isInt {
			p.SetInts(key, []int64{v.GetIntegerValue()})
		}
	}
	p.Content = m[domain.FieldContent].GetStringValue()
	p.Name = m[domain.FieldName].GetStringValue()
	p.Photo = m[domain.FieldPhoto].GetStringValue()
	p.Address = m[domain.FieldAddress].GetStringValue()
	return p
}

// toFilter converts must predicates and an optional text term into a Qdrant filter.
// Returns nil when there is nothing to filter on.
func toFilter(preds []filter.Predicate, textField, text string) *qdrant.Filter {
	conds := make([]*qdrant.Condition, 0, len(preds)+1)
	for _, p := range preds {
		conds = append(conds, fieldCondition(p.Key(), matchInts(p.Values())))
	}
	if text != "" {
		conds = append(conds, fieldCondition(textField, &qdrant.Match{MatchValue: &qdrant.Match_Text{Text: text}}))
	}
	if len(conds) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conds}
}

func matchInts(values []int64) *qdrant.Match {
	if len(values) == 1 {
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: values[0]}}
	}
	return &qdrant.Match{MatchValue: &qdrant.Match_Integers{Integers: &qdrant.RepeatedIntegers{Integers: values}}}
}

func fieldCondition(key string, m *qdrant.Match) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: m},
		},
	}
}

func withPayload(enable bool) *qdrant.WithPayloadSelector {
	return &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: enable}}
}
