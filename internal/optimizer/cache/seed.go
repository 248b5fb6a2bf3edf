package cache

import "context"

// seedEntry is a pre-baked response for a very common prompt.
type seedEntry struct {
	prompt   string
	response string
}

var seedEntries = []seedEntry{
	{
		prompt: "create a click detector script",
		response: "```lua\n" +
			"local part = script.Parent\n" +
			"local clickDetector = part:FindFirstChild(\"ClickDetector\") or Instance.new(\"ClickDetector\", part)\n\n" +
			"clickDetector.MouseClick:Connect(function(player)\n" +
			"    print(player.Name .. \" clicked the part!\")\n" +
			"    -- Add your click action here\n" +
			"end)\n" +
			"```",
	},
	{
		prompt: "teleport player to another part",
		response: "```lua\n" +
			"local teleportPart = script.Parent\n" +
			"local destination = workspace:WaitForChild(\"DestinationPart\")\n\n" +
			"teleportPart.Touched:Connect(function(hit)\n" +
			"    local humanoid = hit.Parent:FindFirstChild(\"Humanoid\")\n" +
			"    if humanoid then\n" +
			"        local rootPart = humanoid.Parent:FindFirstChild(\"HumanoidRootPart\")\n" +
			"        if rootPart then\n" +
			"            rootPart.CFrame = destination.CFrame + Vector3.new(0, 3, 0)\n" +
			"        end\n" +
			"    end\n" +
			"end)\n" +
			"```",
	},
	{
		prompt: "create a gui button",
		response: "```lua\n" +
			"local player = game.Players.LocalPlayer\n" +
			"local playerGui = player:WaitForChild(\"PlayerGui\")\n\n" +
			"local screenGui = Instance.new(\"ScreenGui\")\n" +
			"screenGui.Parent = playerGui\n\n" +
			"local button = Instance.new(\"TextButton\")\n" +
			"button.Size = UDim2.new(0, 200, 0, 50)\n" +
			"button.Position = UDim2.new(0.5, -100, 0.5, -25)\n" +
			"button.Text = \"Click Me!\"\n" +
			"button.Parent = screenGui\n\n" +
			"button.MouseButton1Click:Connect(function()\n" +
			"    print(\"Button clicked!\")\n" +
			"end)\n" +
			"```",
	},
}

// Seed pre-populates the cache with responses for the most common prompts so
// brand-new deployments get hits immediately.
func (c *Cache) Seed(ctx context.Context, model string) int {
	for _, s := range seedEntries {
		c.Set(ctx, s.prompt, s.response, model, 500)
	}
	return len(seedEntries)
}
