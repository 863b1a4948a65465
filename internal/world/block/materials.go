package block

// Регистрируем все встроенные материалы при импорте пакета
func init() {
	Register(AirBlockID, Properties{Name: "Air"})
	Register(StoneBlockID, Properties{Name: "Stone", Solid: true, Opaque: true})
	Register(GrassBlockID, Properties{Name: "Grass", Solid: true, Opaque: true})
	Register(WaterBlockID, Properties{Name: "Water"})
	Register(SandBlockID, Properties{Name: "Sand", Solid: true, Opaque: true})
	Register(DirtBlockID, Properties{Name: "Dirt", Solid: true, Opaque: true})
	Register(GlassBlockID, Properties{Name: "Glass", Solid: true})
	Register(BedrockBlockID, Properties{Name: "Bedrock", Solid: true, Opaque: true})

	Register(LampBlockID, Properties{Name: "Lamp", Solid: true, Opaque: true, Emission: 15})
	Register(TorchBlockID, Properties{Name: "Torch", Emission: 13})
}
