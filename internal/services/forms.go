package services

import (
	"strings"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/utils"
)

// skuLines converts quantities into lines in catalog order, dropping zero quantities.
func skuLines(quantities map[string]int, catalog []string) ([]models.SKULine, error) {
	known := utils.SliceToSet(catalog)
	for name, qty := range quantities {
		if _, ok := known[name]; !ok {
			return nil, invalidForm("Unknown SKU " + name)
		}
		if qty < 0 {
			return nil, invalidForm("Quantity for " + name + " cannot be negative")
		}
	}

	lines := []models.SKULine{}
	for _, name := range catalog {
		if qty := quantities[name]; qty > 0 {
			lines = append(lines, models.SKULine{Name: name, Qty: qty})
		}
	}
	return lines, nil
}

// validateVisit checks a visit form and returns its SKU lines and final reason.
func validateVisit(form models.VisitForm, catalog []string) ([]models.SKULine, string, error) {
	if len(form.Photo) == 0 {
		return nil, "", invalidForm("Capture selfie")
	}
	if strings.TrimSpace(form.Region) == "" {
		return nil, "", invalidForm("Select region")
	}
	if strings.TrimSpace(form.Shop) == "" {
		return nil, "", invalidForm("Enter shop name")
	}

	switch form.Sold {
	case models.SoldYes:
		lines, err := skuLines(form.SKUQuantities, catalog)
		if err != nil {
			return nil, "", err
		}
		if len(lines) == 0 {
			return nil, "", invalidForm("Select SKU quantity")
		}
		return lines, "", nil

	case models.SoldNo:
		if form.Reason == "" {
			return nil, "", invalidForm("Select reason")
		}
		reason := form.Reason
		if reason == models.ReasonOther {
			reason = strings.TrimSpace(form.OtherReason)
			if reason == "" {
				return nil, "", invalidForm("Specify reason")
			}
		}
		return []models.SKULine{}, reason, nil

	default:
		return nil, "", invalidForm("Select whether the shop bought")
	}
}

// validateUplift checks an uplift form and returns its SKU lines.
func validateUplift(form models.UpliftForm, catalog []string) ([]models.SKULine, error) {
	if len(form.Photo) == 0 {
		return nil, invalidForm("Capture photo")
	}
	if strings.TrimSpace(form.Shop) == "" {
		return nil, invalidForm("Enter shop name")
	}

	lines, err := skuLines(form.SKUQuantities, catalog)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, invalidForm("Select SKU quantity")
	}
	return lines, nil
}
