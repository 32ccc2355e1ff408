package memstore

import "storefront/internal/models"

// SeedDemoCatalog fills s with a small catalog for local runs.
func SeedDemoCatalog(s *Store) {
	demo := []struct {
		name     string
		desc     string
		price    int64
		category string
		stock    int
	}{
		{"무선 이어폰", "노이즈 캔슬링 블루투스 이어폰", 89000, "electronics", 40},
		{"기계식 키보드", "갈축 텐키리스 키보드", 129000, "electronics", 15},
		{"오버핏 후드티", "기모 안감 후드 스웨트셔츠", 45000, "clothing", 60},
		{"Go 프로그래밍", "실전 예제로 배우는 Go", 32000, "books", 25},
		{"유기농 녹차", "제주산 잎차 100g", 18000, "food", 80},
		{"요가 매트", "6mm 미끄럼 방지 매트", 27000, "sports", 30},
		{"수분 크림", "민감성 피부용 50ml", 24000, "beauty", 50},
		{"머그컵 세트", "도자기 머그 2인 세트", 21000, "home", 0},
	}

	for _, d := range demo {
		desc, category := d.desc, d.category
		s.PutProduct(models.Product{
			Name:          d.name,
			Description:   &desc,
			Price:         d.price,
			Category:      &category,
			StockQuantity: d.stock,
			IsActive:      true,
		})
	}
}
