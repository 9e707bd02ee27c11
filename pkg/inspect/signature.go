package inspect

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/host"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

var kindMap = map[host.ParamKind]model.ParameterKind{
	host.PositionalOnly:      model.PositionalOnly,
	host.PositionalOrKeyword: model.PositionalOrKeyword,
	host.VarPositional:       model.VarPositional,
	host.KeywordOnly:         model.KeywordOnly,
	host.VarKeyword:          model.VarKeyword,
}

// convertSignature maps host parameters to model parameters, keeping order.
func convertSignature(sig *host.Signature, scope annotation.Resolver) ([]*model.Parameter, annotation.Expr) {
	params := make([]*model.Parameter, 0, len(sig.Params))
	for _, p := range sig.Params {
		kind, ok := kindMap[p.Kind]
		if !ok {
			kind = model.PositionalOrKeyword
		}
		mp := &model.Parameter{
			Name:       p.Name,
			Kind:       kind,
			Annotation: convertAnnotation(p.Annotation, scope),
		}
		if p.HasDefault {
			if s, ok := snapshot(p.Default); ok {
				mp.Default = &s
			}
		}
		params = append(params, mp)
	}
	return params, convertAnnotation(sig.Returns, scope)
}

// convertAnnotation turns a textual or live annotation into an expression.
// Unparseable text is kept raw.
func convertAnnotation(a any, scope annotation.Resolver) annotation.Expr {
	if a == nil {
		return nil
	}
	var text string
	switch v := a.(type) {
	case annotation.Expr:
		return v
	case string:
		text = v
	case host.Named:
		text = v.QualifiedName()
	case reflect.Type:
		text = v.String()
	case fmt.Stringer:
		text = v.String()
	default:
		s, ok := snapshot(v)
		if !ok {
			return nil
		}
		text = s
	}
	if text == "" {
		return nil
	}
	return annotation.ParseOrRaw(text, scope)
}

// snapshot renders a value as text. Failures, including panics raised by
// the value's own methods, return false.
func snapshot(v any) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s, ok = "", false
		}
	}()
	switch t := v.(type) {
	case host.Repr:
		r, err := t.Repr()
		if err != nil {
			return "", false
		}
		return r, true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprintf("%#v", v), true
	}
}
