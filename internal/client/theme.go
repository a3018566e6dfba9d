package client

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle: светлая <-> тёмная; пустая тема считается светлой.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) OrDefault() Theme {
	if t == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
