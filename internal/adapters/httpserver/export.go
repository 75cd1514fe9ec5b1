package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/eighthand/storefront/internal/domain"
)

// GET /admin/export/xlsx — exporta el catálogo completo a una planilla.
func (s *Server) handleAdminExportXLSX(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}

	list, _, err := s.products.List(r.Context(), domain.ProductFilter{Page: 1, PageSize: 10000})
	if err != nil {
		s.writeError(w, err)
		return
	}

	f := excelize.NewFile()
	const sheet = "Products"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Name", "Description", "Price", "Discount Price", "Category", "In Stock", "New", "Featured", "Bestseller", "Main Image", "Images"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, p := range list {
		discount := ""
		if p.DiscountPrice != nil {
			discount = fmt.Sprintf("%.2f", *p.DiscountPrice)
		}
		values := []any{
			p.ID.String(), p.Name, p.Description, p.Price, discount, p.Category,
			p.InStock, p.IsNew, p.IsFeatured, p.IsBestseller, p.ImageURL, len(p.Images),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=products-%s.xlsx", time.Now().Format("20060102")))
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("export xlsx")
	}
}
