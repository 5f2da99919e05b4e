package edamam

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/csheth/recipescout/internal/search"
)

type apiResponse struct {
	From  int      `json:"from"`
	To    int      `json:"to"`
	Count int      `json:"count"`
	Links apiLinks `json:"_links"`
	Hits  []apiHit `json:"hits"`
}

type apiLinks struct {
	Next *apiLink `json:"next"`
}

type apiLink struct {
	Href  string `json:"href"`
	Title string `json:"title"`
}

type apiHit struct {
	Recipe apiRecipe `json:"recipe"`
}

type apiRecipe struct {
	URI             string              `json:"uri"`
	Label           string              `json:"label"`
	Image           string              `json:"image"`
	Images          map[string]apiImage `json:"images"`
	Source          string              `json:"source"`
	URL             string              `json:"url"`
	ShareAs         string              `json:"shareAs"`
	Yield           float64             `json:"yield"`
	Calories        float64             `json:"calories"`
	TotalTime       float64             `json:"totalTime"`
	IngredientLines []string            `json:"ingredientLines"`
	CuisineType     []string            `json:"cuisineType"`
	MealType        []string            `json:"mealType"`
}

type apiImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// imagePreference lists image sizes from most to least preferred for cards.
var imagePreference = []string{"SMALL", "REGULAR", "THUMBNAIL", "LARGE"}

func decodePage(r io.Reader) (search.Page, error) {
	var resp apiResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return search.Page{}, fmt.Errorf("failed to decode search response: %w", err)
	}
	page := search.Page{Count: resp.Count, Hits: make([]search.Recipe, 0, len(resp.Hits))}
	if resp.Links.Next != nil {
		page.Next = resp.Links.Next.Href
	}
	for _, hit := range resp.Hits {
		if r, ok := convertRecipe(hit.Recipe); ok {
			page.Hits = append(page.Hits, r)
		}
	}
	return page, nil
}

func convertRecipe(r apiRecipe) (search.Recipe, bool) {
	link := r.ShareAs
	if link == "" {
		link = r.URL
	}
	if link == "" {
		return search.Recipe{}, false
	}
	return search.Recipe{
		Link:        link,
		Name:        DisplayName(r.ShareAs, r.Label),
		Label:       r.Label,
		Source:      r.Source,
		SourceURL:   r.URL,
		Image:       pickImage(r),
		Yield:       r.Yield,
		Calories:    r.Calories,
		TotalTime:   r.TotalTime,
		Ingredients: r.IngredientLines,
		CuisineType: r.CuisineType,
		MealType:    r.MealType,
	}, true
}

func pickImage(r apiRecipe) search.Image {
	for _, size := range imagePreference {
		if img, ok := r.Images[size]; ok && img.URL != "" {
			return search.Image{URL: img.URL, Width: img.Width, Height: img.Height}
		}
	}
	return search.Image{URL: r.Image}
}

var recipeIDSuffix = regexp.MustCompile(`-[0-9a-f]{32}$`)

// DisplayName derives a readable name from a share link such as
// http://www.edamam.com/recipe/chicken-vesuvio-b79327d05b8e5b838ad6cfd9576b30b6/chicken,
// falling back to label when the link has no recipe slug.
func DisplayName(shareAs, label string) string {
	slug := recipeSlug(shareAs)
	if slug == "" {
		return strings.TrimSpace(label)
	}
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func recipeSlug(shareAs string) string {
	const marker = "/recipe/"
	idx := strings.Index(shareAs, marker)
	if idx < 0 {
		return ""
	}
	rest := shareAs[idx+len(marker):]
	if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
		rest = rest[:cut]
	}
	rest = recipeIDSuffix.ReplaceAllString(rest, "")
	return strings.Trim(rest, "-")
}
