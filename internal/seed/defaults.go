// Package seed fills an empty menu with the default categories and the 14
// EU allergens, and loads demo dishes from YAML.
package seed

import (
	"context"
	"fmt"

	"github.com/chenyk320/menu/internal/menu"
)

var DefaultCategories = []menu.CategoryInput{
	{NameCN: "主食", NameIT: "Piatti Principali", SortOrder: 1, PrefixLetter: "A"},
	{NameCN: "凉菜", NameIT: "Piatti Freddi", SortOrder: 2, PrefixLetter: "B"},
	{NameCN: "小吃", NameIT: "Spuntini", SortOrder: 3, PrefixLetter: "C"},
	{NameCN: "汤类", NameIT: "Zuppe", SortOrder: 4, PrefixLetter: "D"},
	{NameCN: "海鲜", NameIT: "Frutti di Mare", SortOrder: 5, PrefixLetter: "E"},
	{NameCN: "肉类", NameIT: "Piatti di Carne", SortOrder: 6, PrefixLetter: "F"},
	{NameCN: "素菜", NameIT: "Piatti Vegetariani", SortOrder: 7, PrefixLetter: "G"},
	{NameCN: "饮品", NameIT: "Bevande", SortOrder: 8, PrefixLetter: "H"},
}

// DefaultAllergens are the 14 allergens EU Regulation 1169/2011 requires
// restaurants to declare.
var DefaultAllergens = []menu.AllergenInput{
	{NameCN: "含麸质谷物", NameIT: "Cereali contenenti glutine", Icon: "images/allergens/Gluten.jpg",
		DescriptionCN: "小麦、大麦、黑麦、燕麦等", DescriptionIT: "Grano, orzo, segale, avena, ecc."},
	{NameCN: "甲壳类", NameIT: "Crostacei", Icon: "images/allergens/Crustaceans.jpg",
		DescriptionCN: "虾、蟹、龙虾等", DescriptionIT: "Gamberi, granchi, aragoste, ecc."},
	{NameCN: "鸡蛋", NameIT: "Uova", Icon: "images/allergens/Eggs.jpg",
		DescriptionCN: "鸡蛋及其制品", DescriptionIT: "Uova e derivati"},
	{NameCN: "鱼类", NameIT: "Pesce", Icon: "images/allergens/Fish.jpg",
		DescriptionCN: "各种鱼类", DescriptionIT: "Tutti i tipi di pesce"},
	{NameCN: "花生", NameIT: "Arachidi", Icon: "images/allergens/Peanuts.jpg",
		DescriptionCN: "花生及其制品", DescriptionIT: "Arachidi e derivati"},
	{NameCN: "大豆", NameIT: "Soia", Icon: "images/allergens/Soya.jpg",
		DescriptionCN: "大豆及其制品", DescriptionIT: "Soia e derivati"},
	{NameCN: "牛奶", NameIT: "Latte", Icon: "images/allergens/Milk.jpg",
		DescriptionCN: "牛奶及乳制品", DescriptionIT: "Latte e latticini"},
	{NameCN: "坚果", NameIT: "Frutta a guscio", Icon: "images/allergens/Tree_Nuts.jpg",
		DescriptionCN: "杏仁、榛子、核桃等", DescriptionIT: "Mandorle, nocciole, noci, ecc."},
	{NameCN: "芹菜", NameIT: "Sedano", Icon: "images/allergens/Celery.jpg",
		DescriptionCN: "芹菜及其制品", DescriptionIT: "Sedano e derivati"},
	{NameCN: "芥末", NameIT: "Senape", Icon: "images/allergens/Mustard.jpg",
		DescriptionCN: "芥末籽及其制品", DescriptionIT: "Semi di senape e derivati"},
	{NameCN: "芝麻", NameIT: "Semi di sesamo", Icon: "images/allergens/Sesame.jpg",
		DescriptionCN: "芝麻籽及其制品", DescriptionIT: "Semi di sesamo e derivati"},
	{NameCN: "二氧化硫和亚硫酸盐", NameIT: "Anidride solforosa e solfiti", Icon: "images/allergens/Sulphites.jpg",
		DescriptionCN: "含量超过10 mg/kg", DescriptionIT: "Concentrazione > 10 mg/kg"},
	{NameCN: "羽扇豆", NameIT: "Lupini", Icon: "images/allergens/Lupin.jpg",
		DescriptionCN: "羽扇豆及其制品", DescriptionIT: "Lupini e derivati"},
	{NameCN: "软体动物", NameIT: "Molluschi", Icon: "images/allergens/Molluscs.jpg",
		DescriptionCN: "贝类、鱿鱼、章鱼等", DescriptionIT: "Cozze, vongole, calamari, ecc."},
}

// Result counts what a seed run inserted.
type Result struct {
	Categories int
	Allergens  int
	Dishes     int
}

// Defaults inserts the default categories when there are none, and the
// default allergens when there are none. Existing data is never touched.
func Defaults(ctx context.Context, svc *menu.Service) (*Result, error) {
	res := &Result{}

	cats, err := svc.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		for _, in := range DefaultCategories {
			if _, err := svc.CreateCategory(ctx, in); err != nil {
				return res, fmt.Errorf("category %s: %w", in.PrefixLetter, err)
			}
			res.Categories++
		}
	}

	allergens, err := svc.ListAllergens(ctx)
	if err != nil {
		return res, err
	}
	if len(allergens) == 0 {
		for _, in := range DefaultAllergens {
			if _, err := svc.CreateAllergen(ctx, in); err != nil {
				return res, fmt.Errorf("allergen %s: %w", in.NameIT, err)
			}
			res.Allergens++
		}
	}
	return res, nil
}
