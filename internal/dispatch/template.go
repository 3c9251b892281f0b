// internal/dispatch/template.go
package dispatch

import (
	"fmt"
	"strings"

	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
)

// Handlers author decision and justification text with {placeholder}
// tokens resolved against the application at send time. The token set is
// closed; an unknown token fails the render rather than passing garbage
// to the decision archive.
const (
	placeholderCompany     = "company"
	placeholderStartDate   = "benefit_start_date"
	placeholderEndDate     = "benefit_end_date"
	placeholderTotalAmount = "total_amount"
)

const templateDateLayout = "2.1.2006"

// RenderContext carries the values the placeholder tokens resolve to.
type RenderContext struct {
	Application *models.Application
	Calculation *models.Calculation
}

// Render substitutes every {token} occurrence in text. A token outside the
// known set returns a TemplateRenderError naming it.
func Render(text string, rc RenderContext) (string, error) {
	var out strings.Builder
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			out.WriteString(text)
			return out.String(), nil
		}
		out.WriteString(text[:open])
		rest := text[open+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			// Unterminated brace is treated as a malformed token.
			return "", stderrors.NewTemplateRenderError(rest)
		}
		token := rest[:end]
		value, err := resolve(token, rc)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
		text = rest[end+1:]
	}
}

func resolve(token string, rc RenderContext) (string, error) {
	switch token {
	case placeholderCompany:
		return rc.Application.CompanyName, nil
	case placeholderStartDate:
		return rc.Application.BenefitStartDate.Format(templateDateLayout), nil
	case placeholderEndDate:
		return rc.Application.BenefitEndDate.Format(templateDateLayout), nil
	case placeholderTotalAmount:
		if rc.Calculation == nil {
			return "", stderrors.NewTemplateRenderError(token)
		}
		return fmt.Sprintf("%.2f", rc.Calculation.TotalAmount), nil
	default:
		return "", stderrors.NewTemplateRenderError(token)
	}
}
