package utils

// CategoryPalette holds the colors auto-assigned to new categories when
// the caller does not pick one.
var CategoryPalette = []string{
	"#3498DB", // Blue
	"#E74C3C", // Red
	"#2ECC71", // Green
	"#F39C12", // Orange
	"#9B59B6", // Purple
	"#1ABC9C", // Teal
	"#E67E22", // Dark Orange
	"#34495E", // Dark Gray
	"#16A085", // Dark Teal
	"#27AE60", // Dark Green
	"#2980B9", // Dark Blue
	"#8E44AD", // Dark Purple
	"#C0392B", // Dark Red
	"#D35400", // Pumpkin
	"#7F8C8D", // Gray
}

// NextColor returns the first palette color not already in use. When
// every color is taken it cycles through the palette.
func NextColor(used []string) string {
	taken := make(map[string]bool, len(used))
	for _, c := range used {
		taken[c] = true
	}
	for _, c := range CategoryPalette {
		if !taken[c] {
			return c
		}
	}
	return CategoryPalette[len(used)%len(CategoryPalette)]
}
