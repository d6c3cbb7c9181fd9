package highlight

import "github.com/platinummonkey/conceptdoc/pkg/entity"

var entityArticle = entity.Entity{
	ID:      1,
	Concept: "article",
	Attributes: entity.Attributes{
		{Name: "tags", Value: "code"},
		{Name: "content", Value: "var x = a < b;"},
	},
}
